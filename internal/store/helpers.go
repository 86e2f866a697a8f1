package store

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDBTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", v)
}

func optionalDBTime(v string, ok bool) *time.Time {
	if !ok {
		return nil
	}
	t, err := parseDBTime(v)
	if err != nil {
		return nil
	}
	return &t
}

func timeToDBString(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// truncate cuts v to at most max bytes without splitting a rune.
func truncate(v string, max int) string {
	if max <= 0 || len(v) <= max {
		return v
	}
	for max > 0 && !utf8.RuneStart(v[max]) {
		max--
	}
	return v[:max]
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func timestampBeforeDays(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}
