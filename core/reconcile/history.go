package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"collection-manager/core/store"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// HistoryEntry is one work in a browser downloader's history export.
type HistoryEntry struct {
	ID        int      `json:"idNum"`
	Title     string   `json:"title"`
	UserID    int      `json:"userId"`
	User      string   `json:"user"`
	Tags      []string `json:"tags"`
	Date      string   `json:"date"`
	SL        int      `json:"sl"`
	XRestrict int      `json:"xRestrict"`
}

// HistoryReport summarizes a repair from download history.
type HistoryReport struct {
	// Candidates counts images whose author is unknown.
	Candidates int `json:"candidates"`
	// Fixed lists the image ids restored from history.
	Fixed []int `json:"fixed"`
	// Pruned lists records left without references after the repair.
	Pruned store.PruneResult `json:"pruned"`
}

// FixFromHistory restores metadata of images recorded with the placeholder
// author id 0, as imported snapshots hold for works deleted remotely. Title,
// author, tags, date and ratings come from the history file when it lists the
// image. Bookmark and view counts are kept.
func (e *Engine) FixFromHistory(ctx context.Context, path string) (*HistoryReport, error) {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read download history: %w", err)
	}
	var history []HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to decode download history %s: %w", path, err)
	}
	byID := make(map[int]HistoryEntry, len(history))
	for _, h := range history {
		if _, seen := byID[h.ID]; !seen {
			byID[h.ID] = h
		}
	}

	report := &HistoryReport{}
	defer func() { report.Pruned = e.PruneOrphans() }()

	for _, img := range e.store.Images() {
		if img.AuthorID != 0 {
			continue
		}
		report.Candidates++
		if err := ctx.Err(); err != nil {
			return report, err
		}
		h, ok := byID[img.ID]
		if !ok || h.UserID == 0 {
			e.logger.Debug("No history for image", zap.Int("image_id", img.ID))
			continue
		}

		e.store.UpsertAuthor(store.Author{ID: h.UserID, Name: h.User, Account: h.User})
		for _, tag := range h.Tags {
			if _, known := e.store.Tag(tag); !known {
				e.store.UpsertTag(store.Tag{Name: tag})
			}
		}
		img.AuthorID = h.UserID
		img.Title = h.Title
		img.Tags = append([]string{}, h.Tags...)
		img.CreatedAt = h.Date
		img.SanityLevel = h.SL
		img.XRestrict = h.XRestrict
		e.store.UpsertImage(img)

		e.logger.Info("Restored image from download history", zap.Int("image_id", img.ID), zap.Int("author_id", h.UserID))
		report.Fixed = append(report.Fixed, img.ID)
	}

	e.logger.Info("Download history repair finished",
		zap.Int("candidates", report.Candidates), zap.Int("fixed", len(report.Fixed)))
	return report, nil
}
