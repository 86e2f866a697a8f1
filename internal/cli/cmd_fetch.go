package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odysseus0/feedmd/internal/store"
)

func newFetchCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [id]",
		Short: "Fetch all feeds or one feed by ID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			var id *int64
			if len(args) == 1 {
				v, err := parseID(args[0])
				if err != nil {
					return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
				}
				id = &v
			}

			stderr := cmd.ErrOrStderr()
			rep, err := app.fetcher.FetchWithProgress(cmd.Context(), id, func(done, total int, result FetchResult) {
				label := fallback(result.FeedTitle, result.FeedURL)
				switch {
				case result.Error != "":
					fmt.Fprintf(stderr, "[%d/%d] %s -> error: %s\n", done, total, label, result.Error)
				case result.NotModified:
					fmt.Fprintf(stderr, "[%d/%d] %s -> not modified\n", done, total, label)
				default:
					fmt.Fprintf(stderr, "[%d/%d] %s -> %d new, %d updated\n", done, total, label, result.NewEntries, result.Updated)
				}
			})
			if err != nil {
				return fmt.Errorf("fetch feeds: %w", err)
			}
			printWarnings(stderr, rep.Warnings)
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			writeFetchReportTable(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

func newRerenderCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var feedID int64

	cmd := &cobra.Command{
		Use:   "rerender",
		Short: "Rebuild stored Markdown from stored HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			if feedID < 0 {
				return fmt.Errorf("%w: invalid feed id %d", store.ErrInvalidInput, feedID)
			}
			rep, err := app.fetcher.Rerender(cmd.Context(), feedID)
			if err != nil {
				return fmt.Errorf("rerender: %w", err)
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d entries: %d changed, %d render errors\n", rep.Entries, rep.Changed, rep.RenderErrors)
			return nil
		},
	}
	cmd.Flags().Int64Var(&feedID, "feed", 0, "Only rerender entries of this feed ID")
	return cmd
}

// fetchIfStale refreshes every feed when the newest successful fetch is older
// than the configured staleness window.
func fetchIfStale(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	st, err := app.store.GetFetchStaleness(ctx, app.cfg.StaleAfter)
	if err != nil {
		return fmt.Errorf("check fetch staleness: %w", err)
	}
	if !st.HasFeeds || !st.Stale {
		return nil
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Fetching feeds (last fetch: %s)...\n", humanAgo(st.LastFetched))
	rep, err := app.fetcher.Fetch(ctx, nil)
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}
	printWarnings(stderr, rep.Warnings)

	errCount := 0
	for _, r := range rep.Results {
		if strings.TrimSpace(r.Error) != "" {
			errCount++
		}
	}
	if errCount > 0 {
		fmt.Fprintf(stderr, "Fetch completed with %d error(s). Run `feedmd fetch -o wide` for details.\n", errCount)
	}
	return nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
