package models

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const ExcerptLength = 150

// ArticleView ist die Darstellung eines Artikels für die Präsentationsschicht,
// ergänzt um Vorschaubild und Kurztext.
type ArticleView struct {
	Article
	Thumbnail string `json:"thumbnail,omitempty"`
	Excerpt   string `json:"excerpt"`
}

// NewArticleView berechnet die abgeleiteten Felder eines Artikels.
func NewArticleView(a Article) ArticleView {
	thumb := a.ImageURL
	if thumb == "" {
		thumb = FirstImageSrc(a.Content)
	}
	return ArticleView{
		Article:   a,
		Thumbnail: thumb,
		Excerpt:   Excerpt(a.Content, ExcerptLength),
	}
}

// NewArticleViews wandelt eine Liste von Artikeln um. Eine leere Liste ergibt ein leeres Slice, nicht nil.
func NewArticleViews(articles []Article) []ArticleView {
	views := make([]ArticleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, NewArticleView(a))
	}
	return views
}

// FirstImageSrc liefert die src des ersten <img> im HTML-Inhalt.
// Relative Pfade auf uploads/ werden zu absoluten Pfaden.
func FirstImageSrc(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	src, ok := doc.Find("img[src]").First().Attr("src")
	if !ok {
		return ""
	}
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "uploads/") {
		src = "/" + src
	}
	return src
}

// Excerpt entfernt alle Tags und kürzt den Text auf max Zeichen plus "...".
func Excerpt(content string, max int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
