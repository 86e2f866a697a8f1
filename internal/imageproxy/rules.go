package imageproxy

import "regexp"

// DefaultProxyBase is the image proxy used for origins that require a referer.
const DefaultProxyBase = "https://webp.follow.is"

// DirectSubstitution rewrites a matching URL to a public mirror of the same asset.
type DirectSubstitution struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// RefererRequired marks an origin that only serves images when the request
// carries Referer. Such URLs are routed through the proxy.
type RefererRequired struct {
	Pattern *regexp.Regexp
	Referer string
}

// RuleTable is evaluated in two phases: every DirectSubstitution rule first,
// then every RefererRequired rule. Order inside each phase is significant.
type RuleTable struct {
	ProxyBase string
	Direct    []DirectSubstitution
	Referer   []RefererRequired
}

var defaultTable = RuleTable{
	ProxyBase: DefaultProxyBase,
	Direct: []DirectSubstitution{
		{
			Pattern:     regexp.MustCompile(`^https://avatars\.githubusercontent\.com/u/`),
			Replacement: "https://avatars-githubusercontent.webp.se/u/",
		},
	},
	Referer: []RefererRequired{
		{Pattern: regexp.MustCompile(`^https://\w+\.sinaimg\.cn`), Referer: "https://weibo.com"},
		{Pattern: regexp.MustCompile(`^https://i\.pximg\.net`), Referer: "https://www.pixiv.net"},
		{Pattern: regexp.MustCompile(`^https://cdnfile\.sspai\.com`), Referer: "https://sspai.com"},
		{Pattern: regexp.MustCompile(`^https://(?:\w|-)+\.cdninstagram\.com`), Referer: "https://www.instagram.com"},
		{Pattern: regexp.MustCompile(`^https://sp1\.piokok\.com`), Referer: "https://sp1.piokok.com"},
	},
}

// DefaultTable returns the compiled-in rule table. The slices are shared and
// must not be modified.
func DefaultTable() RuleTable {
	return defaultTable
}
