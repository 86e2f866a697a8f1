// Package render produces the Markdown stored for each feed entry.
package render

import (
	"log/slog"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/odysseus0/feedmd/internal/imageproxy"
	"github.com/odysseus0/feedmd/internal/markdown"
)

const (
	summaryMaxLen  = 280
	fallbackMaxLen = 4000
)

type Options struct {
	RewriteImages bool
	Logger        *slog.Logger
}

type Renderer struct {
	emitter  *markdown.Emitter
	rewriter markdown.ImageRewriter
	generic  *md.Converter
	logger   *slog.Logger
}

// Output is the Markdown for one article and the number of elements that
// were replaced by error markers.
type Output struct {
	Markdown string
	Failures int
}

func NewRenderer(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var rewriter markdown.ImageRewriter
	if opts.RewriteImages {
		rewriter = imageproxy.Default()
	}

	r := &Renderer{
		emitter:  markdown.NewEmitter(markdown.WithRewriter(rewriter), markdown.WithLogger(logger)),
		rewriter: rewriter,
		logger:   logger,
	}
	r.generic = md.NewConverter("", true, nil)
	r.generic.AddRules(md.Rule{
		Filter: []string{"img"},
		Replacement: func(_ string, selec *goquery.Selection, _ *md.Options) *string {
			src, ok := selec.Attr("src")
			if !ok {
				return md.String("")
			}
			return md.String("![" + selec.AttrOr("alt", "") + "](" + r.rewrite(src) + ")")
		},
	})
	return r
}

// Article converts sanitized entry HTML. Documents the emitter rejects are
// rendered with the generic converter instead.
func (r *Renderer) Article(html string) Output {
	html = strings.TrimSpace(html)
	if html == "" {
		return Output{}
	}
	res, err := r.emitter.RenderHTML(html)
	if err != nil {
		r.logger.Warn("render: falling back to generic converter", "err", err)
		return Output{Markdown: r.genericMarkdown(html), Failures: 1}
	}
	return Output{Markdown: Tidy(res.Markdown), Failures: len(res.Failures)}
}

// Summary renders a short single-paragraph preview.
func (r *Renderer) Summary(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	return compactText(r.genericMarkdown(SanitizeHTML(html)), summaryMaxLen)
}

// CoverImage returns the first non-empty candidate, rewritten for display.
func (r *Renderer) CoverImage(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return r.rewrite(c)
		}
	}
	return ""
}

func (r *Renderer) genericMarkdown(html string) string {
	out, err := r.generic.ConvertString(html)
	if err != nil {
		return compactText(html, fallbackMaxLen)
	}
	return strings.TrimSpace(out)
}

func (r *Renderer) rewrite(src string) string {
	if r.rewriter == nil {
		return src
	}
	return r.rewriter.Rewrite(src)
}
