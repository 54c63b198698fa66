package reconcile

import (
	"context"
	"fmt"
	"sort"

	"collection-manager/core/inventory"
	"collection-manager/core/store"

	"go.uber.org/zap"
)

// actionOrder ranks action types so a stale record is gone before its replacement is created.
var actionOrder = map[ActionType]int{
	ActionResolveConflict: 0,
	ActionDeleteFile:      1,
	ActionCreateFile:      2,
	ActionRefreshFile:     3,
}

// diskFile is what the scanner knows about one original.
type diskFile struct {
	entry      inventory.Entry
	conflicted bool
}

// PlanDiff compares the store with the originals on disk.
// It does NOT execute anything; use ApplyDiff for that.
func (e *Engine) PlanDiff(ctx context.Context) (*Plan, error) {
	inv, err := e.scanner.Scan(e.paths.Original)
	if err != nil {
		return nil, err
	}

	storeIndex := make(map[string]store.File)
	for _, f := range e.store.Files() {
		storeIndex[f.Name] = f.Record.Data
	}
	diskIndex := make(map[string]diskFile, len(inv.Entries))
	for _, entry := range inv.Entries {
		diskIndex[entry.Name] = diskFile{entry: entry}
	}
	for _, c := range inv.Conflicts {
		for _, cand := range c.Candidates {
			diskIndex[cand.Name] = diskFile{entry: cand.Entry, conflicted: true}
		}
	}

	keys := buildUnion(storeIndex, diskIndex)
	plan := &Plan{Invalid: inv.Invalid}

	for i := range inv.Conflicts {
		c := inv.Conflicts[i]
		plan.Actions = append(plan.Actions, Action{
			Type:     ActionResolveConflict,
			Key:      fmt.Sprintf("%d_p%d", c.ImageID, c.Part),
			Reason:   fmt.Sprintf("%d candidates share one part", len(c.Candidates)),
			Conflict: &c,
		})
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, width, height := e.buildResult(key, storeIndex, diskIndex)
		plan.Results = append(plan.Results, result)

		// Conflicted names are settled by the resolve action
		if result.Conflicted {
			continue
		}
		switch {
		case result.StorePresent && !result.DiskPresent:
			plan.Actions = append(plan.Actions, Action{Type: ActionDeleteFile, Key: key, Reason: "original missing on disk"})
		case !result.StorePresent && result.DiskPresent:
			plan.Actions = append(plan.Actions, Action{Type: ActionCreateFile, Key: key, Reason: "original has no record"})
		case len(result.Mismatch) > 0:
			plan.Actions = append(plan.Actions, Action{
				Type:   ActionRefreshFile,
				Key:    key,
				Reason: fmt.Sprintf("mismatch: %v", result.Mismatch),
				Width:  width,
				Height: height,
			})
		}
	}

	sort.SliceStable(plan.Actions, func(i, j int) bool {
		return actionOrder[plan.Actions[i].Type] < actionOrder[plan.Actions[j].Type]
	})
	plan.Summary = summarize(plan, len(inv.Conflicts))
	return plan, nil
}

// ApplyDiff executes the actions of a plan in order.
// The pass always ends with a cascading prune, also when ctx is cancelled midway.
// Per-item failures are logged and reported without aborting the pass.
func (e *Engine) ApplyDiff(ctx context.Context, plan *Plan, opts DiffOptions) (*DiffReport, error) {
	report := &DiffReport{}
	if opts.DryRun {
		return report, nil
	}
	defer func() { report.Pruned = e.PruneOrphans() }()

	for _, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch action.Type {
		case ActionResolveConflict:
			e.resolveConflict(ctx, action, report)
		case ActionDeleteFile:
			if !e.store.HasFile(action.Key) {
				continue
			}
			e.deleteFile(action.Key)
			report.Deleted = append(report.Deleted, action.Key)
		case ActionCreateFile:
			e.createFile(ctx, action.Key, report)
		case ActionRefreshFile:
			if err := e.refreshFile(action.Key); err != nil {
				e.logger.Error("Failed to refresh file", zap.String("file", action.Key), zap.Error(err))
				report.Failed = append(report.Failed, action.Key)
				continue
			}
			report.Refreshed = append(report.Refreshed, action.Key)
		}
	}
	return report, nil
}

// Diff plans and applies a diff pass.
func (e *Engine) Diff(ctx context.Context, opts DiffOptions) (*Plan, *DiffReport, error) {
	plan, err := e.PlanDiff(ctx)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("Diff planned",
		zap.Int("total", plan.Summary.TotalItems),
		zap.Int("missing_disk", plan.Summary.MissingDisk),
		zap.Int("missing_store", plan.Summary.MissingStore),
		zap.Int("mismatches", plan.Summary.Mismatches),
		zap.Int("conflicts", plan.Summary.Conflicts))

	report, err := e.ApplyDiff(ctx, plan, opts)
	return plan, report, err
}

func (e *Engine) resolveConflict(ctx context.Context, action Action, report *DiffReport) {
	c := action.Conflict
	if c == nil {
		return
	}
	kept, removed, err := e.scanner.Resolve(e.paths.Original, *c, e.resolver)
	if err != nil {
		e.logger.Error("Failed to resolve conflict", zap.String("key", action.Key), zap.Error(err))
		report.Failed = append(report.Failed, action.Key)
	}
	for _, loser := range removed {
		e.logger.Info("Removed conflicting original", zap.String("file", loser.Name), zap.String("kept", kept.Name))
		report.Removed = append(report.Removed, loser.Name)
		if e.store.HasFile(loser.Name) {
			e.deleteFile(loser.Name)
			report.Deleted = append(report.Deleted, loser.Name)
		}
	}

	if kept.Name == "" {
		return
	}
	rec, ok := e.store.File(kept.Name)
	switch {
	case !ok:
		e.createFile(ctx, kept.Name, report)
	case rec.Data.Size != (store.Size{kept.Width, kept.Height}):
		if err := e.refreshFile(kept.Name); err != nil {
			report.Failed = append(report.Failed, kept.Name)
			return
		}
		report.Refreshed = append(report.Refreshed, kept.Name)
	}
}

// deleteFile drops a file record and both derivatives.
func (e *Engine) deleteFile(name string) {
	f, ok := e.store.DeleteFile(name)
	if !ok {
		return
	}
	e.logger.Info("Deleted file record", zap.String("file", name))
	e.removeDerivatives(f.ID, f.Part)
}

// createFile records an original found on disk.
// The image record is reused when present, otherwise fetched from the remote.
// A record holding the same image part under another name is replaced.
func (e *Engine) createFile(ctx context.Context, name string, report *DiffReport) {
	id, part, ext, err := inventory.ParseName(name)
	if err != nil {
		report.Failed = append(report.Failed, name)
		return
	}
	if stale, ok := e.store.FileFor(id, part); ok && stale != name {
		e.logger.Info("Replacing record of renamed original", zap.String("file", name), zap.String("stale", stale))
		e.deleteFile(stale)
		report.Deleted = append(report.Deleted, stale)
	}
	info, err := e.generator.Inspect(e.originalPath(name))
	if err != nil {
		e.logger.Error("Failed to inspect original", zap.String("file", name), zap.Error(err))
		report.Failed = append(report.Failed, name)
		return
	}
	entry := inventory.Entry{Name: name, ImageID: id, Part: part, Ext: ext}

	if _, ok := e.store.Image(id); ok {
		e.store.UpsertFile(name, store.File{
			ID:            id,
			Part:          part,
			Size:          store.Size{info.Width, info.Height},
			Ext:           ext,
			DominantColor: info.DominantColor,
		})
		e.logger.Info("Created file record", zap.String("file", name))
		report.Created = append(report.Created, name)
		return
	}

	if e.remote == nil {
		e.logger.Warn("No image record and no remote client, leaving unmatched", zap.String("file", name))
		report.Unmatched = append(report.Unmatched, name)
		return
	}
	detail, err := e.remote.IllustDetail(ctx, id)
	if err != nil {
		e.logger.Warn("Failed to fetch image detail, leaving unmatched", zap.String("file", name), zap.Error(err))
		report.Unmatched = append(report.Unmatched, name)
		return
	}
	e.ingest(entry, info, detail)
	e.logger.Info("Created file record", zap.String("file", name))
	report.Created = append(report.Created, name)
}

// refreshFile re-reads size and colour of an original and drops its derivatives.
func (e *Engine) refreshFile(name string) error {
	info, err := e.generator.Inspect(e.originalPath(name))
	if err != nil {
		return err
	}
	var id, part int
	updated := e.store.UpdateFile(name, func(f *store.File) {
		f.Size = store.Size{info.Width, info.Height}
		f.DominantColor = info.DominantColor
		id, part = f.ID, f.Part
	})
	if !updated {
		return fmt.Errorf("no record for %s", name)
	}
	e.removeDerivatives(id, part)
	e.logger.Info("Refreshed file record", zap.String("file", name), zap.Int("width", info.Width), zap.Int("height", info.Height))
	return nil
}

// buildUnion returns the sorted union of keys from both sources.
func buildUnion(storeIndex map[string]store.File, diskIndex map[string]diskFile) []string {
	union := make(map[string]struct{}, len(storeIndex)+len(diskIndex))
	for key := range storeIndex {
		union[key] = struct{}{}
	}
	for key := range diskIndex {
		union[key] = struct{}{}
	}
	keys := make([]string, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// buildResult computes presence and mismatches for a single key.
// It also returns the measured size of the original when both sides exist.
func (e *Engine) buildResult(key string, storeIndex map[string]store.File, diskIndex map[string]diskFile) (DiffResult, int, int) {
	rec, inStore := storeIndex[key]
	disk, onDisk := diskIndex[key]
	result := DiffResult{
		Key:          key,
		StorePresent: inStore,
		DiskPresent:  onDisk,
		Conflicted:   disk.conflicted,
	}
	if !inStore || !onDisk || disk.conflicted {
		return result, 0, 0
	}

	width, height, err := e.scanner.Dimensions(e.originalPath(key))
	if err != nil {
		result.Mismatch = append(result.Mismatch, fmt.Sprintf("unreadable: %v", err))
		return result, 0, 0
	}
	if rec.Size != (store.Size{width, height}) {
		result.Mismatch = append(result.Mismatch,
			fmt.Sprintf("size: store=%s disk=%dx%d", rec.Size, width, height))
	}
	return result, width, height
}

func summarize(plan *Plan, conflicts int) PlanSummary {
	summary := PlanSummary{TotalItems: len(plan.Results), Conflicts: conflicts}
	for _, r := range plan.Results {
		if r.Conflicted {
			continue
		}
		switch {
		case r.StorePresent && !r.DiskPresent:
			summary.MissingDisk++
		case !r.StorePresent && r.DiskPresent:
			summary.MissingStore++
		case len(r.Mismatch) > 0:
			summary.Mismatches++
		}
	}
	return summary
}
