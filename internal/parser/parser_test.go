package parser

import (
	"slices"
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nid: note:1\ntitle: Hello\ntags:\n  - go\n  - notes\nstatus: draft\n---\n# Heading\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "note:1" {
		t.Errorf("id = %q", r.ID)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if !slices.Equal(r.Tags, []string{"go", "notes"}) {
		t.Errorf("tags = %v, want [go notes]", r.Tags)
	}
	if r.Data["status"] != "draft" {
		t.Errorf("data = %v", r.Data)
	}
	if _, ok := r.Data["title"]; ok {
		t.Error("reserved key leaked into data")
	}
	if r.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Data) != 0 || r.Tags != nil {
		t.Errorf("expected no metadata, got %+v", r)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want whole input", r.Body)
	}
}

func TestParse_TagForms(t *testing.T) {
	r, err := Parse([]byte("---\ntags: a, b , a\n---\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(r.Tags, []string{"a", "b"}) {
		t.Errorf("comma tags = %v", r.Tags)
	}

	if _, err := Parse([]byte("---\ntags:\n  - 1\n---\n")); err == nil {
		t.Error("numeric tag should be rejected")
	}
}

func TestRender_RoundTrip(t *testing.T) {
	out, err := Render("note:abc", "My Note", []string{"x", "y"}, map[string]any{"zeta": 1, "alpha": "a"}, "Body\n")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "---\nid: ") || !strings.Contains(s, "\ntitle: My Note\n") {
		t.Errorf("unexpected header:\n%s", s)
	}
	if strings.Index(s, "alpha") > strings.Index(s, "zeta") {
		t.Errorf("data keys not sorted:\n%s", s)
	}

	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.ID != "note:abc" || r.Title != "My Note" || !slices.Equal(r.Tags, []string{"x", "y"}) {
		t.Errorf("round trip = %+v", r)
	}
	if r.Data["alpha"] != "a" || r.Data["zeta"] != 1 {
		t.Errorf("data = %v", r.Data)
	}
	if r.Body != "Body\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestRender_OmitsEmpty(t *testing.T) {
	out, err := Render("", "T", nil, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "---\ntitle: T\n---\n" {
		t.Errorf("render = %q", out)
	}
}
