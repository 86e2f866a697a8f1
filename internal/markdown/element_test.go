package markdown

import (
	"errors"
	"testing"
)

func TestParseAndBody(t *testing.T) {
	doc, err := Parse(`<html><body><p id="x">a<br>b</p><div>  c   d </div></body></html>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body, err := Body(doc)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if body.TagName() != "body" {
		t.Fatalf("unexpected tag %q", body.TagName())
	}
	if again, err := Body(body); err != nil || again.TagName() != "body" {
		t.Fatalf("Body(body) = %v, %v", again, err)
	}

	children := body.Children()
	if len(children) != 2 {
		t.Fatalf("expected 2 element children, got %d", len(children))
	}
	p := children[0]
	if id, ok := p.Attr("id"); !ok || id != "x" {
		t.Fatalf("Attr(id) = %q, %v", id, ok)
	}
	if _, ok := p.Attr("missing"); ok {
		t.Fatalf("expected missing attribute")
	}
	if got := p.Text(); got != "a\nb" {
		t.Fatalf("p.Text() = %q", got)
	}
	if got := body.Text(); got != "a\nb\nc d" {
		t.Fatalf("body.Text() = %q", got)
	}
}

func TestContentsIncludesTextNodes(t *testing.T) {
	doc, err := Parse(`<p>one<!-- note --><b>two</b>three</p>`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	body, err := Body(doc)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	contents := body.Children()[0].Contents()
	var tags []string
	for _, c := range contents {
		tags = append(tags, c.TagName())
	}
	want := []string{textTag, "b", textTag}
	if len(tags) != len(want) {
		t.Fatalf("contents tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("contents tags = %v, want %v", tags, want)
		}
	}
}

func TestBodyNil(t *testing.T) {
	if _, err := Body(nil); !errors.Is(err, ErrMissingBody) {
		t.Fatalf("Body(nil) err = %v", err)
	}
}
