package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultAuthor   = "Admin"
	DefaultCategory = "lainnya"
)

// Article repräsentiert einen News-Beitrag der Schulwebsite.
// Die Tags decken alle drei Backends ab: JSON-Datei, Firestore und Postgres (Supabase).
type Article struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text" firestore:"-"`
	Title      string    `json:"title" gorm:"not null" firestore:"title"`
	Author     string    `json:"author" firestore:"author"`
	Category   string    `json:"category" gorm:"index" firestore:"category"`
	Content    string    `json:"content" gorm:"type:text" firestore:"content"`
	ImageURL   string    `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	ImageKey   string    `json:"imageKey,omitempty" firestore:"imageKey,omitempty"`
	IsFeatured bool      `json:"isFeatured" gorm:"index;default:false" firestore:"isFeatured"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index" firestore:"createdAt"`
}

// TableName gibt explizit den Tabellennamen an.
func (Article) TableName() string {
	return "articles"
}

// NormalizeCategory liefert die Form einer Kategorie, die für Vergleich und Anzeige gilt.
// Es wird nur getrimmt, Groß-/Kleinschreibung bleibt erhalten.
func NormalizeCategory(category string) string {
	return strings.TrimSpace(category)
}

// ArticleInput ist die Nutzlast zum Anlegen oder Bearbeiten eines Artikels.
type ArticleInput struct {
	Title      string `json:"title" form:"title"`
	Author     string `json:"author" form:"author"`
	Category   string `json:"category" form:"category"`
	Content    string `json:"content" form:"content"`
	ImageURL   string `json:"imageUrl" form:"imageUrl"`
	IsFeatured bool   `json:"isFeatured" form:"isFeatured"`
}

// ValidationError meldet fehlende Pflichtfelder.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

// Validate prüft die Pflichtfelder title und content.
func (in ArticleInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Normalize trimmt die Felder und setzt die Standardwerte für Autor und Kategorie.
func (in ArticleInput) Normalize() ArticleInput {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Author = strings.TrimSpace(in.Author)
	if out.Author == "" {
		out.Author = DefaultAuthor
	}
	out.Category = NormalizeCategory(in.Category)
	if out.Category == "" {
		out.Category = DefaultCategory
	}
	out.ImageURL = strings.TrimSpace(in.ImageURL)
	return out
}

// Apply überträgt die Eingabe auf einen Artikel. ID und CreatedAt bleiben unangetastet.
func (in ArticleInput) Apply(a *Article) {
	a.Title = in.Title
	a.Author = in.Author
	a.Category = in.Category
	a.Content = in.Content
	a.IsFeatured = in.IsFeatured
	if in.ImageURL != "" {
		a.ImageURL = in.ImageURL
	}
}
