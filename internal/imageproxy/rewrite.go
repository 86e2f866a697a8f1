// Package imageproxy rewrites image URLs found in untrusted article bodies so
// that a plain client can load them: public mirrors are substituted directly,
// and origins that insist on a Referer header go through an image proxy.
package imageproxy

import (
	"net/url"
	"strconv"
	"strings"
)

type Kind string

const (
	KindNone    Kind = "none"
	KindDirect  Kind = "direct"
	KindReferer Kind = "referer"
)

// Resolution describes how a single URL was handled.
type Resolution struct {
	Input   string `json:"input"`
	URL     string `json:"url"`
	Kind    Kind   `json:"kind"`
	Referer string `json:"referer,omitempty"`
}

// Rewriter applies a RuleTable. It holds no mutable state and is safe for
// concurrent use.
type Rewriter struct {
	table RuleTable
}

func NewRewriter(table RuleTable) *Rewriter {
	if strings.TrimSpace(table.ProxyBase) == "" {
		table.ProxyBase = DefaultProxyBase
	}
	return &Rewriter{table: table}
}

var defaultRewriter = NewRewriter(defaultTable)

// Default returns the process-wide rewriter over the compiled-in table.
func Default() *Rewriter {
	return defaultRewriter
}

// Rewrite returns the URL a client should load for raw. Unmatched input is
// returned unchanged.
func (r *Rewriter) Rewrite(raw string) string {
	return r.Resolve(raw).URL
}

func (r *Rewriter) Resolve(raw string) Resolution {
	res := Resolution{Input: raw, URL: raw, Kind: KindNone}
	if raw == "" {
		return res
	}

	for _, rule := range r.table.Direct {
		if rule.Pattern.MatchString(raw) {
			res.URL = rule.Pattern.ReplaceAllString(raw, rule.Replacement)
			res.Kind = KindDirect
			return res
		}
	}

	for _, rule := range r.table.Referer {
		if rule.Pattern.MatchString(raw) {
			res.URL = proxyURL(r.table.ProxyBase, raw, 0, 0)
			res.Kind = KindReferer
			res.Referer = rule.Referer
			return res
		}
	}
	return res
}

// Rewrite applies the default rule table.
func Rewrite(raw string) string {
	return defaultRewriter.Rewrite(raw)
}

// width and height of 0 ask the proxy to keep the source dimensions.
func proxyURL(base, raw string, width, height int) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?url=")
	b.WriteString(url.QueryEscape(raw))
	b.WriteString("&width=")
	b.WriteString(strconv.Itoa(width))
	b.WriteString("&height=")
	b.WriteString(strconv.Itoa(height))
	return b.String()
}
