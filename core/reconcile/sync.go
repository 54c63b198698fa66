package reconcile

import (
	"context"
	"errors"
	"fmt"

	"collection-manager/core/remote"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type download struct {
	url    string
	illust *remote.Illust
}

// VisibilityBoth walks public bookmarks, then private ones, in one pass.
const VisibilityBoth = "both"

// bookmarkWalk accumulates the download queue across listings.
type bookmarkWalk struct {
	known  map[int]struct{}
	queued map[int]struct{}
	queue  []download
}

// SyncBookmarks downloads the originals of bookmarked works that have no file yet.
// Pagination stops after opts.MaxPages pages per visibility or when the remote has no next page.
// Every queued download is attempted once per pass; failures are reported, not retried.
func (e *Engine) SyncBookmarks(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	if e.remote == nil {
		return nil, errors.New("remote client not configured")
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	visibilities := []string{opts.Visibility}
	switch opts.Visibility {
	case "":
		visibilities = []string{remote.VisibilityPublic}
	case VisibilityBoth:
		visibilities = []string{remote.VisibilityPublic, remote.VisibilityPrivate}
	}

	report := &SyncReport{}
	walk := &bookmarkWalk{known: e.store.FileImageIDs(), queued: make(map[int]struct{})}
	for _, visibility := range visibilities {
		if err := e.walkBookmarks(ctx, opts, visibility, walk, report); err != nil {
			return report, err
		}
	}
	queue := walk.queue

	report.Queued = len(queue)
	if len(queue) == 0 {
		e.logger.Info("Nothing to download")
		return report, nil
	}
	e.logger.Info("Downloading originals", zap.Int("count", len(queue)), zap.Int("workers", e.cfg.Workers))

	var downloaded, failed collector
	err := forEach(ctx, e.cfg.Workers, queue, func(d download) {
		name, err := e.remote.Download(ctx, d.url, e.paths.Original)
		if err != nil {
			e.logger.Error("Download failed, skipping", zap.String("url", d.url), zap.Error(err))
			failed.add(d.url)
			return
		}
		e.remote.Remember(d.illust)
		e.logger.Info("Downloaded original", zap.String("file", name))
		downloaded.add(name)
	})
	report.Downloaded = downloaded.sorted()
	report.Failed = failed.sorted()
	if err != nil {
		return report, fmt.Errorf("bookmark sync interrupted: %w", err)
	}
	return report, nil
}

// walkBookmarks pages through one bookmark listing and queues missing originals.
// A listing failure is recorded in the report and ends this listing only.
func (e *Engine) walkBookmarks(ctx context.Context, opts SyncOptions, visibility string, walk *bookmarkWalk, report *SyncReport) error {
	cursor := ""
	for page := 1; page <= opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.logger.Info("Fetching bookmarks",
			zap.Int("user_id", opts.UserID),
			zap.String("visibility", visibility),
			zap.Int("page", page))

		res, err := e.remote.BookmarkPage(ctx, opts.UserID, visibility, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("Failed to fetch bookmark page",
				zap.String("visibility", visibility), zap.Int("page", page), zap.Error(err))
			report.PageError = fmt.Sprintf("%s: %v", visibility, err)
			return nil
		}
		report.Pages++

		for i := range res.Illusts {
			illust := &res.Illusts[i]
			report.Seen++

			if illust.Type != "" && illust.Type != remote.TypeIllust {
				report.SkippedType++
				continue
			}
			if !illust.IsVisible() {
				e.logger.Warn("Work deleted or hidden, skipping", zap.Int("image_id", illust.ID))
				report.SkippedHidden++
				continue
			}
			if _, ok := walk.known[illust.ID]; ok {
				report.SkippedKnown++
				continue
			}
			if _, ok := walk.queued[illust.ID]; ok {
				continue
			}
			walk.queued[illust.ID] = struct{}{}

			for _, u := range illust.OriginalURLs() {
				exists, _ := afero.Exists(e.fs, e.originalPath(remote.FileName(u)))
				if exists {
					continue
				}
				walk.queue = append(walk.queue, download{url: u, illust: illust})
			}
		}

		cursor = res.NextURL
		if cursor == "" {
			return nil
		}
	}
	return nil
}
