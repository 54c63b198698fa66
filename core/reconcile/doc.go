// Package reconcile keeps the collection snapshot, the original assets on disk
// and the remote collection consistent with each other.
//
// An Engine owns one store and runs discrete batch passes over it:
//
//   - SyncBookmarks downloads bookmarked works that have no file yet.
//   - MatchLocalFiles creates records for originals that have none.
//   - Diff reconciles the store with the disk (Plan, then Apply).
//   - GeneratePreviews and GenerateThumbnails fill in missing derivatives.
//   - PruneOrphans removes unreferenced images, authors and tags.
//   - Check reports data quality problems and optionally repairs them.
//   - Export writes the denormalized view consumed by front ends.
//
// # Diff
//
// Diff follows a plan/apply split. PlanDiff builds the union of keys found in the
// store and on disk, computes one DiffResult per key and derives the actions.
// ApplyDiff executes them unless DryRun is set:
//
//	plan, err := engine.PlanDiff(ctx)
//	report, err := engine.ApplyDiff(ctx, plan, reconcile.DiffOptions{})
//
// Name conflicts (same image and part, different extensions) are resolved first
// through the configured inventory.Resolver; losing files are deleted from disk.
//
// # Concurrency
//
// Downloads, detail lookups and derivative generation run through a worker group
// bounded by reconcile.workers. With the default of one worker every pass is serial.
// Cancelling the context stops a pass between items.
package reconcile
