package reconcile

import (
	"context"
	"errors"
	"fmt"

	"collection-manager/core/inventory"
	"collection-manager/core/remote"

	"go.uber.org/zap"
)

// MatchLocalFiles creates records for every original on disk that has no file record.
// Image details come from the remote through the per-run cache. A failed lookup
// leaves the original unmatched; it is picked up again by the next pass.
func (e *Engine) MatchLocalFiles(ctx context.Context) (*MatchReport, error) {
	if e.remote == nil {
		return nil, errors.New("remote client not configured")
	}

	inv, err := e.scanner.Scan(e.paths.Original)
	if err != nil {
		return nil, err
	}

	report := &MatchReport{Invalid: inv.Invalid, Conflicts: len(inv.Conflicts)}
	for _, name := range inv.Invalid {
		e.logger.Warn("Ignoring file with unexpected name", zap.String("file", name))
	}
	for _, c := range inv.Conflicts {
		e.logger.Warn("Name conflict left for diff to resolve",
			zap.Int("image_id", c.ImageID), zap.Int("part", c.Part), zap.Int("candidates", len(c.Candidates)))
	}

	var pending []inventory.Entry
	for _, entry := range inv.Entries {
		if e.store.HasFile(entry.Name) {
			continue
		}
		// A record under another extension owns this identity; diff replaces it.
		if owner, ok := e.store.FileFor(entry.ImageID, entry.Part); ok {
			e.logger.Warn("Original already recorded under another name, left for diff",
				zap.String("file", entry.Name), zap.String("recorded", owner))
			report.Deferred = append(report.Deferred, entry.Name)
			continue
		}
		pending = append(pending, entry)
	}

	var matched, unmatched collector
	err = forEach(ctx, e.cfg.Workers, pending, func(entry inventory.Entry) {
		if err := e.matchOne(ctx, entry); err != nil {
			level := e.logger.Error
			if errors.Is(err, remote.ErrNotFound) {
				level = e.logger.Warn
			}
			level("Failed to match original", zap.String("file", entry.Name), zap.Error(err))
			unmatched.add(entry.Name)
			return
		}
		e.logger.Info("Matched original", zap.String("file", entry.Name))
		matched.add(entry.Name)
	})
	report.Matched = matched.sorted()
	report.Unmatched = unmatched.sorted()
	if err != nil {
		return report, fmt.Errorf("matching interrupted: %w", err)
	}
	return report, nil
}

func (e *Engine) matchOne(ctx context.Context, entry inventory.Entry) error {
	detail, err := e.remote.IllustDetail(ctx, entry.ImageID)
	if err != nil {
		return err
	}
	info, err := e.generator.Inspect(e.originalPath(entry.Name))
	if err != nil {
		return err
	}
	e.ingest(entry, info, detail)
	return nil
}
