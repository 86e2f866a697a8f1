package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/odysseus0/feedmd/internal/imageproxy"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func writeEntriesTable(out io.Writer, entries []Entry, wide bool) {
	tw := newTable(out)
	if wide {
		fmt.Fprintln(tw, "ID\tFEED_ID\tFEED\tTITLE\tDATE\tREAD\tRENDER_ERRORS\tURL\tIMAGE\tSUMMARY")
		for _, e := range entries {
			fmt.Fprintf(
				tw,
				"%d\t%d\t%s\t%s\t%s\t%t\t%d\t%s\t%s\t%s\n",
				e.ID,
				e.FeedID,
				compactText(e.FeedTitle, 24),
				compactText(displayEntryTitle(e), 56),
				formatDate(e.PublishedAt),
				e.Read,
				e.RenderErrors,
				compactText(e.URL, 48),
				compactText(fallback(e.ImageURL, "-"), 48),
				compactText(oneLine(e.Summary), 90),
			)
		}
	} else {
		fmt.Fprintln(tw, "ID\tFEED\tTITLE\tDATE\tSUMMARY")
		for _, e := range entries {
			fmt.Fprintf(
				tw,
				"%d\t%s\t%s\t%s\t%s\n",
				e.ID,
				compactText(e.FeedTitle, 24),
				compactText(displayEntryTitle(e), 56),
				formatDate(e.PublishedAt),
				compactText(oneLine(e.Summary), 90),
			)
		}
	}
	_ = tw.Flush()
}

func writeFeedsTable(out io.Writer, feeds []Feed, wide bool) {
	tw := newTable(out)
	if wide {
		fmt.Fprintln(tw, "ID\tTITLE\tUNREAD\tTOTAL\tLAST_FETCH\tERRORS\tURL\tSITE_URL\tICON\tLAST_ERROR")
		for _, f := range feeds {
			fmt.Fprintf(
				tw,
				"%d\t%s\t%d\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
				f.ID,
				compactText(fallback(f.Title, f.URL), 30),
				f.UnreadCount,
				f.TotalCount,
				humanAgo(f.LastFetchedAt),
				f.ErrorCount,
				compactText(f.URL, 46),
				compactText(fallback(f.SiteURL, "-"), 46),
				fallback(f.IconURL, "-"),
				compactText(oneLine(f.LastError), 70),
			)
		}
	} else {
		fmt.Fprintln(tw, "ID\tTITLE\tUNREAD\tLAST_FETCH\tERRORS\tLAST_ERROR\tURL")
		for _, f := range feeds {
			fmt.Fprintf(
				tw,
				"%d\t%s\t%d\t%s\t%d\t%s\t%s\n",
				f.ID,
				compactText(fallback(f.Title, f.URL), 30),
				f.UnreadCount,
				humanAgo(f.LastFetchedAt),
				f.ErrorCount,
				compactText(oneLine(f.LastError), 42),
				compactText(f.URL, 56),
			)
		}
	}
	_ = tw.Flush()
}

func writeStatsTable(out io.Writer, st Stats) {
	tw := newTable(out)
	fmt.Fprintln(tw, "METRIC\tVALUE")
	fmt.Fprintf(tw, "feeds\t%d\n", st.Feeds)
	fmt.Fprintf(tw, "unread\t%d\n", st.Unread)
	fmt.Fprintf(tw, "total\t%d\n", st.Total)
	fmt.Fprintf(tw, "render_errors\t%d\n", st.RenderErrors)
	_ = tw.Flush()
}

func writeFetchReportTable(out io.Writer, rep FetchReport) {
	tw := newTable(out)
	fmt.Fprintln(tw, "FEED_ID\tFEED\tNEW\tUPDATED\tNOT_MODIFIED\tERROR")
	for _, r := range rep.Results {
		fmt.Fprintf(
			tw,
			"%d\t%s\t%d\t%d\t%t\t%s\n",
			r.FeedID,
			compactText(fallback(r.FeedTitle, r.FeedURL), 30),
			r.NewEntries,
			r.Updated,
			r.NotModified,
			compactText(oneLine(r.Error), 70),
		)
	}
	_ = tw.Flush()
}

func writeResolutionTable(out io.Writer, res imageproxy.Resolution) {
	tw := newTable(out)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	fmt.Fprintf(tw, "input\t%s\n", res.Input)
	fmt.Fprintf(tw, "url\t%s\n", res.URL)
	fmt.Fprintf(tw, "kind\t%s\n", res.Kind)
	fmt.Fprintf(tw, "referer\t%s\n", fallback(res.Referer, "-"))
	_ = tw.Flush()
}

func oneLine(v string) string {
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\r", " ")
	return strings.TrimSpace(v)
}

func displayEntryTitle(e Entry) string {
	if strings.TrimSpace(e.Title) != "" {
		return e.Title
	}
	if strings.TrimSpace(e.URL) != "" {
		return e.URL
	}
	return "(untitled)"
}
