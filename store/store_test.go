package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"school-site/models"
)

var base = time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func TestCursor_RoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC), ID: "abc:def"}

	decoded, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !decoded.CreatedAt.Equal(c.CreatedAt) || decoded.ID != c.ID {
		t.Errorf("Expected %+v, got %+v", c, decoded)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, raw := range []string{"%%%", "bm9jb2xvbg", "eHl6OmFiYw"} {
		if _, err := DecodeCursor(raw); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("Expected ErrInvalidCursor for %q, got %v", raw, err)
		}
	}
}

func TestPaginate_OrderAndFilter(t *testing.T) {
	all := []models.Article{
		{ID: "1", Category: "Sains", CreatedAt: at(1)},
		{ID: "2", Category: "Sains ", CreatedAt: at(3)},
		{ID: "3", Category: "sains", CreatedAt: at(2)},
		{ID: "4", Category: "Berita", CreatedAt: at(3)},
	}

	page := Paginate(all, Query{Category: " Sains"})
	if len(page) != 2 || page[0].ID != "2" || page[1].ID != "1" {
		t.Errorf("Expected [2 1], got %v", ids(page))
	}

	page = Paginate(all, Query{})
	if got := strings.Join(ids(page), ","); got != "4,2,3,1" {
		t.Errorf("Expected 4,2,3,1 (ties broken by id desc), got %s", got)
	}
}

func TestPaginate_CursorIsExclusive(t *testing.T) {
	all := []models.Article{
		{ID: "a", CreatedAt: at(1)},
		{ID: "b", CreatedAt: at(2)},
		{ID: "c", CreatedAt: at(2)},
	}

	first := Paginate(all, Query{Limit: 1})
	c := CursorOf(first[0])
	rest := Paginate(all, Query{After: &c})

	if got := strings.Join(ids(rest), ","); got != "b,a" {
		t.Errorf("Expected b,a after cursor, got %s", got)
	}
}

func TestDistinctCategories(t *testing.T) {
	got := DistinctCategories([]string{"Sains", "Sains ", "", "   ", "sains", "Berita"})
	if strings.Join(got, "|") != "Berita|Sains|sains" {
		t.Errorf("Expected Berita|Sains|sains, got %v", got)
	}
}

func TestPageKey_DependsOnGenerationAndCursor(t *testing.T) {
	c := Cursor{CreatedAt: at(1), ID: "x"}
	q := Query{Category: " Sains ", Limit: 10}

	if pageKey(1, q) == pageKey(2, q) {
		t.Error("Expected different keys for different generations")
	}
	if pageKey(1, q) != pageKey(1, Query{Category: "Sains", Limit: 10}) {
		t.Error("Expected trimmed category to share a key")
	}
	q.After = &c
	if pageKey(1, q) == pageKey(1, Query{Category: "Sains", Limit: 10}) {
		t.Error("Expected cursor to change the key")
	}
	if articleKey("7") != "article:7" {
		t.Errorf("Expected article:7, got %s", articleKey("7"))
	}
}

func ids(articles []models.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func TestCursor_RoundTripZeroTime(t *testing.T) {
	decoded, err := DecodeCursor(Cursor{ID: "2"}.Encode())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !decoded.CreatedAt.Equal(time.Time{}) || decoded.ID != "2" {
		t.Errorf("Expected zero time with id 2, got %+v", decoded)
	}
}

func TestPaginate_MatchesUntrimmedStoredCategory(t *testing.T) {
	all := []models.Article{
		{ID: "1", Category: "Sains ", CreatedAt: at(1)},
		{ID: "2", Category: "  Sains", CreatedAt: at(2)},
		{ID: "3", Category: "Berita", CreatedAt: at(3)},
	}

	page := Paginate(all, Query{Category: "Sains"})
	if got := strings.Join(ids(page), ","); got != "2,1" {
		t.Errorf("Expected 2,1, got %s", got)
	}
}
