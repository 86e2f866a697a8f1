// Package markdown turns parsed HTML article bodies into Markdown for display.
//
// Conversion walks the element tree with a fixed set of tag rules. Every image
// source is passed through an ImageRewriter. A failing element is replaced by
// an inline marker so one bad fragment never blanks a whole article.
package markdown

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/odysseus0/feedmd/internal/imageproxy"
)

const (
	DefaultErrorMarker = "\n[parse error]\n"
	DefaultMaxDepth    = 512
)

// ImageRewriter maps an image URL to the URL a client should load.
type ImageRewriter interface {
	Rewrite(raw string) string
}

type Emitter struct {
	rewriter ImageRewriter
	logger   *slog.Logger
	maxDepth int
	marker   string
}

type Option func(*Emitter)

// WithRewriter sets the image rewriter. A nil rewriter leaves URLs untouched.
func WithRewriter(r ImageRewriter) Option {
	return func(e *Emitter) { e.rewriter = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMaxDepth(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

func WithErrorMarker(marker string) Option {
	return func(e *Emitter) { e.marker = marker }
}

func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{
		rewriter: imageproxy.Default(),
		maxDepth: DefaultMaxDepth,
		marker:   DefaultErrorMarker,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEmitter = NewEmitter()

// ConvertHTML parses raw HTML and converts its body with the default emitter.
func ConvertHTML(raw string) (string, error) {
	return defaultEmitter.ConvertHTML(raw)
}

// Result is the output of one conversion together with the element failures
// that were replaced by error markers.
type Result struct {
	Markdown string
	Failures []error
}

func (e *Emitter) ConvertHTML(raw string) (string, error) {
	res, err := e.RenderHTML(raw)
	return res.Markdown, err
}

func (e *Emitter) RenderHTML(raw string) (Result, error) {
	doc, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}
	body, err := Body(doc)
	if err != nil {
		return Result{}, err
	}
	return e.Render(body)
}

// Convert renders the children of root. Only a missing root is an error;
// failures below it are reported inline.
func (e *Emitter) Convert(root Element) (string, error) {
	res, err := e.Render(root)
	return res.Markdown, err
}

func (e *Emitter) Render(root Element) (Result, error) {
	if root == nil {
		return Result{}, ErrMissingBody
	}
	r := &run{}
	var b strings.Builder
	e.convertChildren(r, &b, root, 0)
	return Result{Markdown: b.String(), Failures: r.failures}, nil
}

type run struct {
	failures []error
}

func (e *Emitter) convertChildren(r *run, b *strings.Builder, parent Element, depth int) {
	for _, child := range parent.Children() {
		out, err := e.convertElement(r, child, depth+1)
		if err != nil {
			e.fail(r, b, child, err)
			continue
		}
		b.WriteString(out)
	}
}

func (e *Emitter) fail(r *run, b *strings.Builder, el Element, err error) {
	r.failures = append(r.failures, err)
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("markdown: element skipped", "tag", el.TagName(), "err", err)
	b.WriteString(e.marker)
}

type tagKind int

const (
	tagOther tagKind = iota
	tagParagraph
	tagHeading
	tagLink
	tagImage
	tagList
	tagPre
	tagBlockquote
)

func classify(tag string) tagKind {
	switch tag {
	case "p":
		return tagParagraph
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return tagHeading
	case "a":
		return tagLink
	case "img":
		return tagImage
	case "ul", "ol":
		return tagList
	case "pre":
		return tagPre
	case "blockquote":
		return tagBlockquote
	default:
		return tagOther
	}
}

func (e *Emitter) convertElement(r *run, el Element, depth int) (string, error) {
	tag := el.TagName()
	if depth > e.maxDepth {
		return "", &NodeError{Tag: tag, Err: ErrTooDeep}
	}

	switch classify(tag) {
	case tagParagraph:
		return e.paragraph(r, el)
	case tagHeading:
		level, _ := strconv.Atoi(tag[1:])
		return "\n\n" + strings.Repeat("#", level) + " " + oneLine(el.Text()) + "\n\n", nil
	case tagLink:
		href, _ := el.Attr("href")
		return "[" + oneLine(el.Text()) + "](" + href + ")", nil
	case tagImage:
		return e.image(el)
	case tagList:
		return "\n" + list(el, tag == "ol") + "\n", nil
	case tagPre:
		return codeBlock(el), nil
	case tagBlockquote:
		return "\n\n> " + strings.ReplaceAll(el.Text(), "\n", "\n> ") + "\n\n", nil
	default:
		var b strings.Builder
		e.convertChildren(r, &b, el, depth)
		return b.String(), nil
	}
}

func (e *Emitter) image(el Element) (string, error) {
	src, ok := el.Attr("src")
	if !ok {
		return "", &NodeError{Tag: "img", Attr: "src", Err: ErrMissingAttribute}
	}
	alt, _ := el.Attr("alt")
	if e.rewriter != nil {
		src = e.rewriter.Rewrite(src)
	}
	return "![" + alt + "](" + src + ")", nil
}

var spaceRun = regexp.MustCompile(`\s+`)

func (e *Emitter) paragraph(r *run, el Element) (string, error) {
	content := ""
	if hasImageChild(el) {
		var b strings.Builder
		for _, c := range el.Contents() {
			if c.TagName() != "img" {
				b.WriteString(spaceRun.ReplaceAllString(c.RawText(), " "))
				continue
			}
			img, err := e.image(c)
			if err != nil {
				e.fail(r, &b, c, err)
				continue
			}
			b.WriteString(img)
		}
		content = strings.TrimSpace(b.String())
	}
	if content == "" {
		content = el.Text()
	}
	return "\n\n" + content + "\n\n", nil
}

func hasImageChild(el Element) bool {
	for _, c := range el.Children() {
		if c.TagName() == "img" {
			return true
		}
	}
	return false
}

func list(el Element, ordered bool) string {
	var b strings.Builder
	n := 0
	for _, item := range el.Children() {
		if item.TagName() != "li" {
			continue
		}
		n++
		if ordered {
			b.WriteString(strconv.Itoa(n))
			b.WriteString(". ")
		} else {
			b.WriteString("- ")
		}
		b.WriteString(oneLine(item.Text()))
		b.WriteByte('\n')
	}
	return b.String()
}

var codeSelector = cascadia.MustCompile("code")

func codeBlock(pre Element) string {
	code, ok := findCode(pre)
	if !ok {
		return ""
	}
	return "\n\n```" + language(code) + "\n" + code.RawText() + "\n```\n\n"
}

func findCode(pre Element) (Element, bool) {
	if n, ok := pre.(node); ok {
		found := n.sel.FindMatcher(codeSelector).First()
		if found.Length() == 0 {
			return nil, false
		}
		return node{sel: found}, true
	}
	for _, c := range pre.Children() {
		if c.TagName() == "code" {
			return c, true
		}
		if found, ok := findCode(c); ok {
			return found, true
		}
	}
	return nil, false
}

func language(code Element) string {
	class, _ := code.Attr("class")
	for _, token := range strings.Fields(class) {
		if lang, ok := strings.CutPrefix(token, "language-"); ok {
			return lang
		}
	}
	return ""
}
