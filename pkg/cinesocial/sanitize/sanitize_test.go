package sanitize_test

import (
	"testing"

	"github.com/mikepea/cinesocial/pkg/cinesocial/sanitize"
)

func TestText_Empty(t *testing.T) {
	if got := sanitize.Text(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestText_PlainText(t *testing.T) {
	if got := sanitize.Text("  A slow burn, worth it  "); got != "A slow burn, worth it" {
		t.Errorf("expected trimmed plain text, got %q", got)
	}
}

func TestText_RemovesTags(t *testing.T) {
	got := sanitize.Text("<b>Great</b> film<script>alert('xss')</script>")
	if got != "Great film" {
		t.Errorf("expected markup removed, got %q", got)
	}
}

func TestText_RemovesAttributes(t *testing.T) {
	got := sanitize.Text(`<a href="javascript:alert(1)" onclick="x()">click</a>`)
	if got != "click" {
		t.Errorf("expected link stripped to its text, got %q", got)
	}
}

func TestText_Idempotent(t *testing.T) {
	once := sanitize.Text("Tom & Jerry")
	if twice := sanitize.Text(once); twice != once {
		t.Errorf("expected sanitizing twice to be stable, got %q then %q", once, twice)
	}
}

func TestEmail(t *testing.T) {
	if got := sanitize.Email("  Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", got)
	}
}

func TestHasMarkup(t *testing.T) {
	cases := map[string]bool{
		"alice":                false,
		"o'brien":              false,
		"tom & jerry":          false,
		"<b>alice</b>":         true,
		"bob<script></script>": true,
	}
	for in, want := range cases {
		if got := sanitize.HasMarkup(in); got != want {
			t.Errorf("HasMarkup(%q) = %v, want %v", in, got, want)
		}
	}
}
