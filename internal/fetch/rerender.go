package fetch

import (
	"context"

	"github.com/odysseus0/feedmd/internal/model"
)

// Rerender re-derives stored Markdown from stored HTML, for every entry or
// only those of feedID when it is positive. Only entries whose output changed
// are written back.
func (f *Fetcher) Rerender(ctx context.Context, feedID int64) (RerenderReport, error) {
	if feedID > 0 {
		if _, err := f.store.GetFeedByID(ctx, feedID); err != nil {
			return RerenderReport{}, err
		}
	}
	entries, err := f.store.ListEntriesForRender(ctx, feedID)
	if err != nil {
		return RerenderReport{}, err
	}

	report := RerenderReport{Entries: len(entries)}
	var changed []model.EntryRender
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		out := f.renderer.Article(e.ContentHTML)
		report.RenderErrors += out.Failures
		if out.Markdown == e.ContentMD && out.Failures == e.RenderErrors {
			continue
		}
		changed = append(changed, model.EntryRender{ID: e.ID, ContentMD: out.Markdown, RenderErrors: out.Failures})
	}
	if err := f.store.UpdateEntryRenders(ctx, changed); err != nil {
		return report, err
	}
	report.Changed = len(changed)
	f.logger.Info("rerender: done", "entries", report.Entries, "changed", report.Changed, "render_errors", report.RenderErrors)
	return report, nil
}
