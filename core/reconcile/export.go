package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"collection-manager/core/store"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// NoSanityFilter disables the sanity level filter of Records and Export.
const NoSanityFilter = -1

// Records builds the denormalized export view, newest image first and pages in order.
// Images above maxSanityLevel are dropped unless it is NoSanityFilter.
// Files whose image record is missing are skipped.
func (e *Engine) Records(maxSanityLevel int) []ExportRecord {
	files := e.store.Files()
	records := make([]ExportRecord, 0, len(files))

	for _, entry := range files {
		f := entry.Record.Data
		rec, ok := e.store.Image(f.ID)
		if !ok {
			e.logger.Warn("Skipping file without image record", zap.String("file", entry.Name))
			continue
		}
		img := rec.Data
		if maxSanityLevel != NoSanityFilter && img.SanityLevel > maxSanityLevel {
			continue
		}

		author := store.Author{ID: img.AuthorID}
		if a, ok := e.store.Author(img.AuthorID); ok {
			author = a.Data
		}
		tags := make([]store.Tag, 0, len(img.Tags))
		for _, name := range img.Tags {
			tag := store.Tag{Name: name}
			if t, ok := e.store.Tag(name); ok {
				tag = t.Data
			}
			tags = append(tags, tag)
		}

		records = append(records, ExportRecord{
			ID:            f.ID,
			Part:          f.Part,
			Title:         img.Title,
			Size:          f.Size,
			Ext:           f.Ext,
			Author:        author,
			Tags:          tags,
			CreatedAt:     img.CreatedAt,
			SanityLevel:   img.SanityLevel,
			XRestrict:     img.XRestrict,
			Bookmark:      img.Bookmark,
			View:          img.View,
			DominantColor: f.DominantColor,
		})
	}

	// Equivalent to ordering by id*1000 + (999-part) descending
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ID != records[j].ID {
			return records[i].ID > records[j].ID
		}
		return records[i].Part < records[j].Part
	})
	return records
}

// Export writes the export view to path and returns the number of records.
func (e *Engine) Export(ctx context.Context, path string, maxSanityLevel int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	records := e.Records(maxSanityLevel)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := afero.WriteFile(e.fs, path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write export %s: %w", path, err)
	}

	e.logger.Info("Exported records", zap.Int("count", len(records)), zap.String("path", path))
	return len(records), nil
}
