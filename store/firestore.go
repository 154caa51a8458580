package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"school-site/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const articlesCollection = "articles"

// FirestoreStore speichert Artikel in der Firestore-Collection "articles".
type FirestoreStore struct {
	client *firestore.Client
	log    *zap.Logger
	now    func() time.Time
}

// OpenFirestore erstellt einen Firestore-Client. Ohne Credentials-Datei gelten die Application Default Credentials.
func OpenFirestore(ctx context.Context, projectID, credentialsFile string, log *zap.Logger) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: firestore client: %v", ErrUnavailable, err)
	}
	return &FirestoreStore{client: client, log: log, now: time.Now}, nil
}

func (s *FirestoreStore) col() *firestore.CollectionRef {
	return s.client.Collection(articlesCollection)
}

// classify übersetzt gRPC-Statuscodes in die Sentinel-Fehler des Pakets.
func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s: %v", ErrIndexRequired, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
}

func fromSnapshot(doc *firestore.DocumentSnapshot) (models.Article, error) {
	var a models.Article
	if err := doc.DataTo(&a); err != nil {
		return models.Article{}, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
	}
	a.ID = doc.Ref.ID
	return a, nil
}

func (s *FirestoreStore) collect(iter *firestore.DocumentIterator, op string) ([]models.Article, error) {
	defer iter.Stop()
	articles := []models.Article{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(op, err)
		}
		a, err := fromSnapshot(doc)
		if err != nil {
			s.log.Warn("skipping undecodable article", zap.String("id", doc.Ref.ID), zap.Error(err))
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (s *FirestoreStore) Insert(ctx context.Context, a models.Article) (models.Article, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	var ref *firestore.DocumentRef
	if a.ID == "" {
		ref = s.col().NewDoc()
	} else {
		ref = s.col().Doc(a.ID)
	}
	if _, err := ref.Create(ctx, a); err != nil {
		return models.Article{}, classify("insert", err)
	}
	a.ID = ref.ID
	return a, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (models.Article, error) {
	doc, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return models.Article{}, classify("get", err)
	}
	return fromSnapshot(doc)
}

func (s *FirestoreStore) Update(ctx context.Context, a models.Article) (models.Article, error) {
	updates := []firestore.Update{
		{Path: "title", Value: a.Title},
		{Path: "author", Value: a.Author},
		{Path: "category", Value: a.Category},
		{Path: "content", Value: a.Content},
		{Path: "imageUrl", Value: a.ImageURL},
		{Path: "imageKey", Value: a.ImageKey},
		{Path: "isFeatured", Value: a.IsFeatured},
	}
	if _, err := s.col().Doc(a.ID).Update(ctx, updates); err != nil {
		return models.Article{}, classify("update", err)
	}
	return s.Get(ctx, a.ID)
}

func (s *FirestoreStore) SetFeatured(ctx context.Context, id string, featured bool) error {
	_, err := s.col().Doc(id).Update(ctx, []firestore.Update{{Path: "isFeatured", Value: featured}})
	if err != nil {
		return classify("set featured", err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return classify("delete", err)
	}
	return nil
}

// Query nutzt den Index (category, createdAt desc, __name__ desc). Fehlt er, meldet Firestore
// FailedPrecondition und es wird ohne Sortierung abgefragt und im Speicher paginiert.
func (s *FirestoreStore) Query(ctx context.Context, q Query) ([]models.Article, error) {
	category := models.NormalizeCategory(q.Category)

	fq := s.col().Query
	if category != "" {
		fq = fq.Where("category", "==", category)
	}
	fq = fq.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if q.After != nil {
		fq = fq.StartAfter(q.After.CreatedAt, q.After.ID)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	articles, err := s.collect(fq.Documents(ctx), "query")
	if err == nil || !errors.Is(err, ErrIndexRequired) {
		return articles, err
	}

	s.log.Warn("firestore index missing, falling back to unindexed query",
		zap.String("category", category), zap.Error(err))

	// ohne Where, damit Paginate auch ungetrimmte Altbestände wie "Sains " findet
	all, err := s.collect(s.col().Documents(ctx), "fallback query")
	if err != nil {
		return nil, err
	}
	return Paginate(all, q), nil
}

func (s *FirestoreStore) Categories(ctx context.Context) ([]string, error) {
	iter := s.col().Select("category").Documents(ctx)
	defer iter.Stop()

	var raw []string
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify("categories", err)
		}
		if c, ok := doc.Data()["category"].(string); ok {
			raw = append(raw, c)
		}
	}
	return DistinctCategories(raw), nil
}

func (s *FirestoreStore) All(ctx context.Context) ([]models.Article, error) {
	articles, err := s.collect(s.col().Documents(ctx), "all")
	if err != nil {
		return nil, err
	}
	SortArticles(articles)
	return articles, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
