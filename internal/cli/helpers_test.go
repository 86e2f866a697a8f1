package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/odysseus0/feedmd/internal/config"
)

const testFeedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example</title><link>https://example.com</link>
<item>
<guid>post-1</guid>
<title>Hello</title>
<link>https://example.com/hello</link>
<description><![CDATA[<h2>Title</h2><p><img src="https://avatars.githubusercontent.com/u/1" alt="me"></p><ul><li>one</li></ul><script>alert(1)</script>]]></description>
</item>
</channel></rss>`

type cliRun struct {
	stdout string
	stderr string
	err    error
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBPath:           filepath.Join(t.TempDir(), "feedmd.db"),
		StaleAfter:       time.Hour,
		FetchConcurrency: 2,
		HTTPTimeout:      5 * time.Second,
		UserAgent:        "feedmd-test/1.0",
		RewriteImages:    true,
	}
}

func runCLI(t *testing.T, cfg config.Config, stdin io.Reader, args ...string) cliRun {
	t.Helper()
	root := NewRootCmd(cfg)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func mustRun(t *testing.T, cfg config.Config, args ...string) cliRun {
	t.Helper()
	res := runCLI(t, cfg, nil, args...)
	if res.err != nil {
		t.Fatalf("feedmd %v: %v (stderr: %s)", args, res.err, res.stderr)
	}
	return res
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// subscribedConfig returns a config whose database already holds one fetched
// feed served by a test server.
func subscribedConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := testConfig(t)
	srv := serveFeed(t, testFeedXML)
	mustRun(t, cfg, "add", srv.URL)
	return cfg
}
