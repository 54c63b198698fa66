package reconcile

import (
	"context"
	"fmt"
	"sync/atomic"

	"collection-manager/core/derivative"
	"collection-manager/core/store"

	"go.uber.org/zap"
)

// GeneratePreviews renders the preview of every recorded file.
// Existing previews are kept unless overwrite is set.
func (e *Engine) GeneratePreviews(ctx context.Context, overwrite bool) (*GenerateReport, error) {
	return e.generate(ctx, derivative.Preview, overwrite)
}

// GenerateThumbnails renders the thumbnail of every recorded file.
// Existing thumbnails are kept unless overwrite is set.
func (e *Engine) GenerateThumbnails(ctx context.Context, overwrite bool) (*GenerateReport, error) {
	return e.generate(ctx, derivative.Thumbnail, overwrite)
}

func (e *Engine) generate(ctx context.Context, kind derivative.Kind, overwrite bool) (*GenerateReport, error) {
	var (
		generated, failed collector
		skipped           atomic.Int64
	)

	err := forEach(ctx, e.cfg.Workers, e.store.Files(), func(f store.FileEntry) {
		dst := e.derivativePath(kind, f.Record.Data.ID, f.Record.Data.Part)
		written, err := e.generator.Generate(e.originalPath(f.Name), dst, kind, overwrite)
		if err != nil {
			e.logger.Error("Failed to generate derivative",
				zap.String("kind", string(kind)), zap.String("file", f.Name), zap.Error(err))
			failed.add(f.Name)
			return
		}
		if !written {
			skipped.Add(1)
			return
		}
		e.logger.Debug("Generated derivative", zap.String("kind", string(kind)), zap.String("path", dst))
		generated.add(f.Name)
	})

	report := &GenerateReport{
		Kind:      string(kind),
		Generated: generated.sorted(),
		Skipped:   int(skipped.Load()),
		Failed:    failed.sorted(),
	}
	e.logger.Info("Derivatives generated",
		zap.String("kind", report.Kind),
		zap.Int("generated", len(report.Generated)),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)))
	if err != nil {
		return report, fmt.Errorf("%s generation interrupted: %w", kind, err)
	}
	return report, nil
}
