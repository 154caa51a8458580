package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"school-site/models"
	"school-site/services"
	"school-site/storage"
	"school-site/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	router *gin.Engine
	svc    *services.ArticleService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	dir := t.TempDir()

	svc := services.NewArticleService(
		store.NewFileStore(filepath.Join(dir, "articles.json"), log),
		storage.NewLocalStore(filepath.Join(dir, "uploads"), log),
		nil, log, 10,
	)
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	auth := services.NewAuthService([]services.Admin{{Email: "admin@sekolah.sch.id", PasswordHash: string(hash)}}, log)

	router := gin.New()
	router.Use(sessions.Sessions("school_session", cookie.NewStore([]byte("test-secret"))))
	SetupAuthRoutes(router, auth, log)
	SetupArticleRoutes(router, svc, 1<<20, log)
	return &testEnv{router: router, svc: svc}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"admin@sekolah.sch.id","password":"rahasia"}`))
	req.Header.Set("Content-Type", "application/json")
	w := e.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected login status 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

type listResponse struct {
	Articles   []models.ArticleView `json:"articles"`
	NextCursor string               `json:"nextCursor"`
	HasMore    bool                 `json:"hasMore"`
	Degraded   bool                 `json:"degraded"`
}

func TestArticles_ListWithCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, title := range []string{"satu", "dua", "tiga"} {
		if _, err := env.svc.Create(ctx, models.ArticleInput{Title: title, Content: `<p>isi</p><img src="uploads/x.png">`, Category: "Sains"}, nil); err != nil {
			t.Fatal(err)
		}
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/articles?category=Sains&limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var first listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if len(first.Articles) != 2 || !first.HasMore {
		t.Fatalf("Expected 2 articles with more, got %+v", first)
	}
	if first.Articles[0].Thumbnail != "/uploads/x.png" || first.Articles[0].Excerpt != "isi" {
		t.Errorf("Expected derived thumbnail and excerpt, got %+v", first.Articles[0])
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/api/articles?category=Sains&limit=2&cursor="+first.NextCursor, nil))
	var second listResponse
	json.Unmarshal(w.Body.Bytes(), &second)
	if len(second.Articles) != 1 || second.HasMore {
		t.Errorf("Expected last page with one article, got %+v", second)
	}
}

func TestArticles_ListBadRequests(t *testing.T) {
	env := newTestEnv(t)

	for _, url := range []string{"/api/articles?cursor=!!", "/api/articles?limit=abc"} {
		w := env.do(httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", url, w.Code)
		}
	}
}

func TestArticles_GetNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/articles/12345", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestArticles_Categories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.Create(ctx, models.ArticleInput{Title: "a", Content: "c", Category: "Sains "}, nil)
	env.svc.Create(ctx, models.ArticleInput{Title: "b", Content: "c", Category: "Sains"}, nil)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	var body struct {
		Categories []string `json:"categories"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if strings.Join(body.Categories, "|") != "Sains" {
		t.Errorf("Expected [Sains], got %v", body.Categories)
	}
}

func TestAdmin_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(`{"title":"t","content":"c"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	w = env.do(httptest.NewRequest(http.MethodDelete, "/api/articles/1", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"admin@sekolah.sch.id","password":"salah"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAdmin_CreateToggleDelete(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	w := env.do(withCookies(httptest.NewRequest(http.MethodGet, "/api/session", nil), cookies))
	if !strings.Contains(w.Body.String(), `"authenticated":true`) {
		t.Fatalf("Expected authenticated session, got %s", w.Body.String())
	}

	req := withCookies(httptest.NewRequest(http.MethodPost, "/api/articles",
		strings.NewReader(`{"title":"Juara","content":"<p>x</p>","category":"  Prestasi  "}`)), cookies)
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created models.ArticleView
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Category != "Prestasi" || created.Author != "Admin" {
		t.Errorf("Expected normalized article, got %+v", created.Article)
	}

	w = env.do(withCookies(httptest.NewRequest(http.MethodPatch, "/api/articles/"+created.ID+"/featured", nil), cookies))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"isFeatured":true`) {
		t.Errorf("Expected featured article, got %d %s", w.Code, w.Body.String())
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/api/articles/featured", nil))
	if !strings.Contains(w.Body.String(), created.ID) {
		t.Errorf("Expected article in featured list, got %s", w.Body.String())
	}

	w = env.do(withCookies(httptest.NewRequest(http.MethodDelete, "/api/articles/"+created.ID, nil), cookies))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	w = env.do(httptest.NewRequest(http.MethodGet, "/api/articles/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestAdmin_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	req := withCookies(httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(`{"content":"c"}`)), cookies)
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "title") {
		t.Errorf("Expected 400 naming title, got %d %s", w.Code, w.Body.String())
	}
}

func TestAdmin_Upload(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "poster lomba.png")
	part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	mw.Close()

	req := withCookies(httptest.NewRequest(http.MethodPost, "/api/uploads", &buf), cookies)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Success  bool   `json:"success"`
		Location string `json:"location"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if !body.Success || !strings.HasPrefix(body.Location, "/uploads/") || !strings.HasSuffix(body.Location, "-poster_lomba.png") {
		t.Errorf("Expected upload location, got %+v", body)
	}
}

func TestAdmin_ListSorted(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login(t)

	w := env.do(withCookies(httptest.NewRequest(http.MethodGet, "/api/admin/articles?sort=views", nil), cookies))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown sort, got %d", w.Code)
	}
	w = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/api/admin/articles?sort=title&order=asc", nil), cookies))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
