package imageproxy

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	iconServiceBase     = "https://unavatar.webp.se/"
	iconPlaceholderBase = "https://avatar.vercel.sh/"
)

// IconURL returns an icon lookup URL for a site plus a generated placeholder
// to show when the lookup has nothing. Inputs that do not parse as absolute
// URLs only get a placeholder, returned as src.
func IconURL(siteURL string, fallback bool) (src, fallbackURL string) {
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return "", ""
	}
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return placeholderURL(siteURL), ""
	}
	host := u.Hostname()
	src = iconServiceBase + host + "?fallback=" + strconv.FormatBool(fallback)
	return src, placeholderURL(host)
}

func placeholderURL(host string) string {
	label := strings.SplitN(host, ".", 2)[0]
	short := []rune(label)
	if len(short) > 2 {
		short = short[:2]
	}
	return iconPlaceholderBase + url.PathEscape(label) + ".svg?text=" + url.QueryEscape(strings.ToUpper(string(short)))
}
