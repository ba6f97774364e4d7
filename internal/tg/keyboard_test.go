package tg

import (
	"errors"
	"testing"

	"moviefilter-bot/internal/catalog"
)

func TestKeyboard(t *testing.T) {
	if kb := Keyboard(nil); kb != nil {
		t.Errorf("Keyboard(nil) = %+v, want nil", kb)
	}

	link := "https://example.com/watch"
	media := "AgADq"
	r := catalog.Assemble(catalog.Entry{Title: "Heat", Year: 1995, ExternalID: "tt0113277", MediaRef: &media, ExternalLink: &link})
	kb := Keyboard(r.Actions)
	if kb == nil {
		t.Fatal("Keyboard returned nil for two actions")
	}
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
	}

	get := kb.InlineKeyboard[0][0]
	if get.Text != catalog.LabelObtainFile || get.CallbackData == nil || *get.CallbackData != "get_file_tt0113277" {
		t.Errorf("first button = %+v", get)
	}
	watch := kb.InlineKeyboard[1][0]
	if watch.Text != catalog.LabelWatch || watch.URL == nil || *watch.URL != link {
		t.Errorf("second button = %+v", watch)
	}
}

func TestArticle(t *testing.T) {
	r := catalog.AssembleInline(catalog.Entry{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})
	a := article(r)
	if a.ID != "tt0113277" || a.Title != "Heat (1995)" || a.Description != r.Description {
		t.Errorf("article = %+v", a)
	}
	if a.ReplyMarkup != nil {
		t.Error("entry without actions should have no keyboard")
	}
	if a.ThumbURL != PlaceholderThumbURL {
		t.Errorf("ThumbURL = %q", a.ThumbURL)
	}
}

func TestIsExpiredQuery(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Bad Request: query is too old and response timeout expired or query ID is invalid"), true},
		{errors.New("QUERY_ID_INVALID"), true},
		{errors.New("Forbidden: bot was blocked by the user"), false},
	}
	for _, tt := range tests {
		if got := isExpiredQuery(tt.err); got != tt.want {
			t.Errorf("isExpiredQuery(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
