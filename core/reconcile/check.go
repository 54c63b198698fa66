package reconcile

import (
	"context"
	"fmt"

	"collection-manager/core/derivative"
	"collection-manager/core/store"

	"go.uber.org/zap"
)

// Check walks every file record and reports data quality problems.
// Size mismatches, unreadable originals and dangling references are always checked;
// the remaining checks are toggled by opts. With opts.Fix, size mismatches get the
// size refreshed, both derivatives regenerated and the colour recomputed, and
// missing colours are filled in.
func (e *Engine) Check(ctx context.Context, opts CheckOptions) (*CheckReport, error) {
	report := &CheckReport{}

	for _, entry := range e.store.Files() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		f := entry.Record.Data
		issue := func(kind IssueKind, detail string) *Issue {
			report.Issues = append(report.Issues, Issue{Kind: kind, File: entry.Name, ImageID: f.ID, Part: f.Part, Detail: detail})
			e.logger.Warn("Check found an issue",
				zap.String("kind", string(kind)), zap.String("file", entry.Name), zap.String("detail", detail))
			return &report.Issues[len(report.Issues)-1]
		}

		if rec, ok := e.store.Image(f.ID); !ok {
			issue(IssueMissingImage, fmt.Sprintf("image %d has no record", f.ID))
		} else {
			img := rec.Data
			if opts.Tags && len(img.Tags) == 0 {
				issue(IssueNoTags, "")
			}
			if opts.Title && img.Title == "" {
				issue(IssueNoTitle, "")
			}
			if opts.Bookmark && img.Bookmark <= 0 {
				issue(IssueNoBookmark, fmt.Sprintf("bookmark=%d", img.Bookmark))
			}
			if opts.View && img.View <= 0 {
				issue(IssueNoView, fmt.Sprintf("view=%d", img.View))
			}
		}

		path := e.originalPath(entry.Name)
		width, height, err := e.scanner.Dimensions(path)
		if err != nil {
			issue(IssueUnreadable, err.Error())
			continue
		}

		if f.Size != (store.Size{width, height}) {
			found := issue(IssueSizeMismatch, fmt.Sprintf("recorded=%s actual=%dx%d", f.Size, width, height))
			if opts.Fix {
				found.Fixed = e.repair(entry.Name, f)
			}
			continue
		}

		if f.DominantColor == "" {
			found := issue(IssueMissingColor, "")
			if opts.Fix {
				found.Fixed = e.fillColor(entry.Name)
			}
		}
	}

	for _, img := range e.store.Images() {
		if _, ok := e.store.Author(img.AuthorID); !ok {
			report.Issues = append(report.Issues, Issue{
				Kind: IssueMissingAuthor, ImageID: img.ID, Detail: fmt.Sprintf("author %d has no record", img.AuthorID),
			})
		}
		for _, tag := range img.Tags {
			if _, ok := e.store.Tag(tag); !ok {
				report.Issues = append(report.Issues, Issue{
					Kind: IssueMissingTag, ImageID: img.ID, Detail: fmt.Sprintf("tag %q has no record", tag),
				})
			}
		}
	}

	e.logger.Info("Check finished", zap.Int("checked", report.Checked), zap.Int("issues", len(report.Issues)))
	return report, nil
}

// repair refreshes a mismatched record and regenerates both derivatives.
func (e *Engine) repair(name string, f store.File) bool {
	if err := e.refreshFile(name); err != nil {
		e.logger.Error("Failed to refresh record", zap.String("file", name), zap.Error(err))
		return false
	}
	ok := true
	for _, kind := range []derivative.Kind{derivative.Preview, derivative.Thumbnail} {
		dst := e.derivativePath(kind, f.ID, f.Part)
		if _, err := e.generator.Generate(e.originalPath(name), dst, kind, true); err != nil {
			e.logger.Error("Failed to regenerate derivative",
				zap.String("kind", string(kind)), zap.String("file", name), zap.Error(err))
			ok = false
		}
	}
	return ok
}

func (e *Engine) fillColor(name string) bool {
	info, err := e.generator.Inspect(e.originalPath(name))
	if err != nil {
		e.logger.Error("Failed to compute dominant colour", zap.String("file", name), zap.Error(err))
		return false
	}
	return e.store.UpdateFile(name, func(f *store.File) {
		f.DominantColor = info.DominantColor
	})
}
