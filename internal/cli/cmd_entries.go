package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odysseus0/feedmd/internal/store"
)

func newEntriesCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var status string
	var feedID int64
	var limit int
	var noFetch bool

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			if !noFetch {
				if err := fetchIfStale(cmd, app); err != nil {
					return err
				}
			}

			entries, err := app.store.ListEntries(cmd.Context(), EntryListOptions{
				Status: status,
				FeedID: feedID,
				Limit:  limit,
			})
			if err != nil {
				return fmt.Errorf("list entries: %w", err)
			}
			return writeEntries(cmd.OutOrStdout(), getOutput(), entries)
		},
	}

	cmd.Flags().StringVar(&status, "status", "unread", "Entry status: unread, read, all")
	cmd.Flags().Int64Var(&feedID, "feed", 0, "Filter by feed ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Result limit")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Skip staleness auto-fetch")
	return cmd
}

func newReadCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var withFrontMatter bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Print an entry as Markdown and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
			}
			entry, err := app.store.GetEntry(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get entry: %w", err)
			}
			if err := app.store.UpdateEntryRead(cmd.Context(), id, true); err != nil {
				return fmt.Errorf("mark entry read: %w", err)
			}
			entry.Read = true

			out := cmd.OutOrStdout()
			if getOutput() == OutputJSON {
				return writeJSON(out, entry)
			}
			if withFrontMatter {
				if err := writeFrontMatter(out, entry); err != nil {
					return err
				}
			}
			if raw {
				fmt.Fprintln(out, strings.TrimSpace(entry.ContentHTML))
				return nil
			}
			writeEntryMarkdown(out, entry, !withFrontMatter)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withFrontMatter, "front-matter", false, "Prefix the output with YAML front matter")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored sanitized HTML instead of Markdown")
	return cmd
}

type frontMatter struct {
	Title        string     `yaml:"title"`
	URL          string     `yaml:"url,omitempty"`
	Feed         string     `yaml:"feed,omitempty"`
	Author       string     `yaml:"author,omitempty"`
	Published    *time.Time `yaml:"published,omitempty"`
	Image        string     `yaml:"image,omitempty"`
	RenderErrors int        `yaml:"render_errors"`
}

func writeFrontMatter(w io.Writer, e Entry) error {
	b, err := yaml.Marshal(frontMatter{
		Title:        displayEntryTitle(e),
		URL:          e.URL,
		Feed:         e.FeedTitle,
		Author:       e.Author,
		Published:    e.PublishedAt,
		Image:        e.ImageURL,
		RenderErrors: e.RenderErrors,
	})
	if err != nil {
		return fmt.Errorf("encode front matter: %w", err)
	}
	fmt.Fprintf(w, "---\n%s---\n\n", b)
	return nil
}

// writeEntryMarkdown prints the stored Markdown, falling back to the summary
// and then the link for entries that carried no body.
func writeEntryMarkdown(w io.Writer, e Entry, header bool) {
	url := fallback(e.URL, "-")
	if header {
		fmt.Fprintf(w, "# %s\n", displayEntryTitle(e))
		fmt.Fprintf(w, "source: %s | date: %s | url: %s\n\n", e.FeedTitle, formatDate(e.PublishedAt), url)
	}
	content := strings.TrimSpace(e.ContentMD)
	if content == "" {
		content = strings.TrimSpace(e.Summary)
	}
	if content == "" {
		content = url
	}
	fmt.Fprintln(w, content)
}

func newMarkCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var read bool
	var unread bool

	cmd := &cobra.Command{
		Use:   "mark <id...>",
		Short: "Mark entries read or unread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			if read == unread {
				return fmt.Errorf("%w: exactly one of --read or --unread is required", store.ErrInvalidInput)
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := app.store.SetEntriesRead(cmd.Context(), ids, read); err != nil {
				return fmt.Errorf("mark entries: %w", err)
			}

			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), MarkEntriesResponse{Updated: len(ids), IDs: ids, Read: read})
			}
			state := "unread"
			if read {
				state = "read"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d entries %s\n", len(ids), state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&read, "read", false, "Mark as read")
	cmd.Flags().BoolVar(&unread, "unread", false, "Mark as unread")
	cmd.MarkFlagsMutuallyExclusive("read", "unread")
	return cmd
}

func newSearchCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var feedID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search entries with full-text search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			entries, err := app.store.SearchEntries(cmd.Context(), SearchOptions{
				Query: args[0],
				Feed:  feedID,
				Limit: limit,
			})
			if err != nil {
				return fmt.Errorf("search entries: %w", err)
			}
			return writeEntries(cmd.OutOrStdout(), getOutput(), entries)
		},
	}
	cmd.Flags().Int64Var(&feedID, "feed", 0, "Filter by feed ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Result limit")
	return cmd
}

func newStatsCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			stats, err := app.store.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			writeStatsTable(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func writeEntries(out io.Writer, format OutputFormat, entries []Entry) error {
	switch format {
	case OutputJSON:
		return writeJSON(out, entries)
	case OutputWide:
		writeEntriesTable(out, entries, true)
	default:
		writeEntriesTable(out, entries, false)
	}
	return nil
}
