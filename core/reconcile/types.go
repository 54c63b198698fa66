package reconcile

import (
	"collection-manager/core/inventory"
	"collection-manager/core/store"
)

// DiffResult represents the reconciliation output for one original filename.
type DiffResult struct {
	// Key is the original filename.
	Key string `json:"key"`

	// StorePresent indicates whether a file record exists.
	StorePresent bool `json:"store_present"`

	// DiskPresent indicates whether the original exists on disk.
	DiskPresent bool `json:"disk_present"`

	// Conflicted indicates the original competes with another extension of the same part.
	Conflicted bool `json:"conflicted"`

	// Mismatch describes field differences between the record and the file,
	// e.g. "size: store=100x100 disk=200x150".
	Mismatch []string `json:"mismatch"`
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionResolveConflict keeps one candidate of a name conflict and deletes the others.
	ActionResolveConflict ActionType = "resolve_conflict"
	// ActionCreateFile creates a record for an original that has none.
	ActionCreateFile ActionType = "create_file"
	// ActionDeleteFile deletes a record whose original is gone, with its derivatives.
	ActionDeleteFile ActionType = "delete_file"
	// ActionRefreshFile refreshes a record whose original changed and drops its derivatives.
	ActionRefreshFile ActionType = "refresh_file"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the original filename, or "{id}_p{part}" for conflicts.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Width and Height carry the measured size for refresh actions.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Conflict stores the candidates for ActionResolveConflict.
	Conflict *inventory.Conflict `json:"conflict,omitempty"`
}

// Plan contains diff results and planned actions.
type Plan struct {
	// Results contains per-file reconciliation data.
	Results []DiffResult `json:"results"`

	// Actions contains planned mutation operations: conflicts, then deletes, creates and refreshes.
	Actions []Action `json:"actions"`

	// Invalid lists filenames on disk that do not follow the naming convention.
	Invalid []string `json:"invalid"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a diff plan.
type PlanSummary struct {
	// TotalItems is the number of unique filenames across store and disk.
	TotalItems int `json:"total_items"`

	// MissingDisk counts records without an original.
	MissingDisk int `json:"missing_disk"`

	// MissingStore counts originals without a record.
	MissingStore int `json:"missing_store"`

	// Mismatches counts records whose size differs from the original.
	Mismatches int `json:"mismatches"`

	// Conflicts counts name conflicts awaiting resolution.
	Conflicts int `json:"conflicts"`
}

// DiffOptions controls how a plan is applied.
type DiffOptions struct {
	// DryRun prevents execution of any mutation if true.
	DryRun bool
}

// DiffReport summarizes an applied diff plan.
type DiffReport struct {
	Created   []string `json:"created"`
	Deleted   []string `json:"deleted"`
	Refreshed []string `json:"refreshed"`
	// Unmatched lists originals for which no image record could be obtained.
	Unmatched []string `json:"unmatched"`
	// Removed lists conflict losers deleted from disk.
	Removed []string `json:"removed"`
	Failed  []string `json:"failed"`
	// Pruned lists entities removed by the cascading prune that ends the pass.
	Pruned store.PruneResult `json:"pruned"`
}

// SyncOptions controls a bookmark synchronization pass.
type SyncOptions struct {
	UserID     int
	Visibility string
	MaxPages   int
}

// SyncReport summarizes a bookmark synchronization pass.
type SyncReport struct {
	Pages         int      `json:"pages"`
	Seen          int      `json:"seen"`
	SkippedType   int      `json:"skipped_type"`
	SkippedHidden int      `json:"skipped_hidden"`
	SkippedKnown  int      `json:"skipped_known"`
	Queued        int      `json:"queued"`
	Downloaded    []string `json:"downloaded"`
	Failed        []string `json:"failed"`
	// PageError is set when pagination stopped early on a listing failure.
	PageError string `json:"page_error,omitempty"`
}

// MatchReport summarizes a matching pass.
type MatchReport struct {
	Matched   []string `json:"matched"`
	Unmatched []string `json:"unmatched"`
	// Deferred holds originals whose identity is recorded under another name.
	Deferred  []string `json:"deferred"`
	Invalid   []string `json:"invalid"`
	Conflicts int      `json:"conflicts"`
}

// GenerateReport summarizes a derivative generation pass.
type GenerateReport struct {
	Kind      string   `json:"kind"`
	Generated []string `json:"generated"`
	Skipped   int      `json:"skipped"`
	Failed    []string `json:"failed"`
}

// IssueKind classifies a Check finding.
type IssueKind string

const (
	IssueNoTags        IssueKind = "no_tags"
	IssueNoTitle       IssueKind = "no_title"
	IssueNoBookmark    IssueKind = "no_bookmark"
	IssueNoView        IssueKind = "no_view"
	IssueSizeMismatch  IssueKind = "size_mismatch"
	IssueMissingColor  IssueKind = "missing_color"
	IssueUnreadable    IssueKind = "unreadable"
	IssueMissingImage  IssueKind = "missing_image"
	IssueMissingAuthor IssueKind = "missing_author"
	IssueMissingTag    IssueKind = "missing_tag"
)

// Issue is one Check finding.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	File    string    `json:"file,omitempty"`
	ImageID int       `json:"image_id"`
	Part    int       `json:"part"`
	Detail  string    `json:"detail,omitempty"`
	// Fixed is set when repair mode corrected the issue.
	Fixed bool `json:"fixed"`
}

// CheckOptions toggles optional checks and repair mode.
type CheckOptions struct {
	Tags     bool
	Title    bool
	Bookmark bool
	View     bool
	// Fix repairs size mismatches and missing colours.
	Fix bool
}

// CheckReport lists the findings of a Check pass.
type CheckReport struct {
	Checked int     `json:"checked"`
	Issues  []Issue `json:"issues"`
}

// Count returns the number of issues of kind.
func (r *CheckReport) Count(kind IssueKind) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}

// ExportRecord is one denormalized entry of the export view.
type ExportRecord struct {
	ID            int          `json:"id"`
	Part          int          `json:"part"`
	Title         string       `json:"title"`
	Size          store.Size   `json:"size"`
	Ext           string       `json:"ext"`
	Author        store.Author `json:"author"`
	Tags          []store.Tag  `json:"tags"`
	CreatedAt     string       `json:"created_at"`
	SanityLevel   int          `json:"sanity_level"`
	XRestrict     int          `json:"x_restrict"`
	Bookmark      int          `json:"bookmark"`
	View          int          `json:"view"`
	DominantColor string       `json:"dominant_color"`
}
