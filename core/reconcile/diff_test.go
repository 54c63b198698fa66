package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"collection-manager/core/inventory"
	"collection-manager/core/store"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanDiff_ClassifiesKeys(t *testing.T) {
	f := newFixture(t)
	f.seedImage(1, 10)
	f.seedImage(2, 20)
	f.store.UpsertFile("1_p0.png", store.File{ID: 1, Ext: "png", Size: store.Size{100, 100}})
	f.store.UpsertFile("2_p0.png", store.File{ID: 2, Ext: "png", Size: store.Size{10, 10}})
	f.writeOriginal(t, "1_p0.png", 200, 150)
	f.writeOriginal(t, "1_p1.png", 10, 10)
	f.writeOriginal(t, "3_p0.jpg", 10, 10)
	f.writeOriginal(t, "3_p0.png", 10, 10)

	plan, err := f.engine.PlanDiff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PlanSummary{TotalItems: 5, MissingDisk: 1, MissingStore: 1, Mismatches: 1, Conflicts: 1}, plan.Summary)

	byType := make(map[ActionType][]string)
	for _, a := range plan.Actions {
		byType[a.Type] = append(byType[a.Type], a.Key)
	}
	assert.Equal(t, []string{"3_p0"}, byType[ActionResolveConflict])
	assert.Equal(t, []string{"1_p1.png"}, byType[ActionCreateFile])
	assert.Equal(t, []string{"2_p0.png"}, byType[ActionDeleteFile])
	assert.Equal(t, []string{"1_p0.png"}, byType[ActionRefreshFile])
	assert.Equal(t, ActionResolveConflict, plan.Actions[0].Type)

	for _, r := range plan.Results {
		if r.Key == "1_p0.png" {
			assert.Equal(t, []string{"size: store=100x100 disk=200x150"}, r.Mismatch)
		}
	}
}

func TestDiff_DryRunChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.seedImage(2, 20)
	f.store.UpsertFile("2_p0.png", store.File{ID: 2, Ext: "png", Size: store.Size{10, 10}})

	plan, report, err := f.engine.Diff(context.Background(), DiffOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 1)
	assert.Empty(t, report.Deleted)
	assert.True(t, f.store.HasFile("2_p0.png"))
}

func TestDiff_DeletesMissingAndCascades(t *testing.T) {
	f := newFixture(t)
	f.seedImage(2, 20, "lonely")
	f.store.UpsertFile("2_p0.png", store.File{ID: 2, Ext: "png", Size: store.Size{10, 10}})
	f.writeDerivatives(t, 2, 0)

	_, report, err := f.engine.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"2_p0.png"}, report.Deleted)
	assert.Equal(t, []string{"2"}, report.Pruned.Images)
	assert.Equal(t, []string{"20"}, report.Pruned.Authors)
	assert.Equal(t, []string{"lonely"}, report.Pruned.Tags)

	preview, thumb := f.derivativesExist(t, 2, 0)
	assert.False(t, preview)
	assert.False(t, thumb)
	assert.Equal(t, store.Stats{}, f.store.Stats())
}

func TestDiff_CreatesFileForKnownImageWithoutRemote(t *testing.T) {
	f := newFixture(t)
	f.seedImage(1, 10)
	f.store.UpsertFile("1_p0.png", store.File{ID: 1, Ext: "png", Size: store.Size{8, 8}, DominantColor: "#000000"})
	f.writeOriginal(t, "1_p0.png", 8, 8)
	f.writeOriginal(t, "1_p1.png", 30, 20)

	_, report, err := f.engine.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1_p1.png"}, report.Created)
	assert.Equal(t, 0, f.remote.detailCalls)
	rec, ok := f.store.File("1_p1.png")
	require.True(t, ok)
	assert.Equal(t, store.Size{30, 20}, rec.Data.Size)
	assert.NotEmpty(t, rec.Data.DominantColor)
	f.assertIntegrity(t)
}

func TestDiff_UnknownImageUsesRemoteOrStaysUnmatched(t *testing.T) {
	f := newFixture(t)
	f.remote.details[5] = illust(5, 50, "tag")
	f.writeOriginal(t, "5_p0.png", 10, 10)
	f.writeOriginal(t, "6_p0.png", 10, 10)

	_, report, err := f.engine.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"5_p0.png"}, report.Created)
	assert.Equal(t, []string{"6_p0.png"}, report.Unmatched)
	assert.False(t, f.store.HasFile("6_p0.png"))
	f.assertIntegrity(t)
}

func TestDiff_SizeMismatchRefreshesAndDropsDerivatives(t *testing.T) {
	f := newFixture(t)
	f.seedImage(1, 10)
	f.store.UpsertFile("1_p0.png", store.File{ID: 1, Ext: "png", Size: store.Size{100, 100}, DominantColor: "#000000"})
	f.writeOriginal(t, "1_p0.png", 200, 150)
	f.writeDerivatives(t, 1, 0)

	_, report, err := f.engine.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"1_p0.png"}, report.Refreshed)
	rec, ok := f.store.File("1_p0.png")
	require.True(t, ok)
	assert.Equal(t, store.Size{200, 150}, rec.Data.Size)

	preview, thumb := f.derivativesExist(t, 1, 0)
	assert.False(t, preview)
	assert.False(t, thumb)
}

func TestDiff_ResolvesConflictKeepingOneFile(t *testing.T) {
	f := newFixture(t)
	f.seedImage(42, 4)
	f.store.UpsertFile("42_p0.jpg", store.File{ID: 42, Ext: "jpg", Size: store.Size{10, 10}, DominantColor: "#000000"})
	f.writeOriginal(t, "42_p0.jpg", 10, 10)
	f.writeOriginal(t, "42_p0.png", 300, 200)
	f.writeDerivatives(t, 42, 0)

	_, report, err := f.engine.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"42_p0.jpg"}, report.Removed)
	assert.Equal(t, []string{"42_p0.jpg"}, report.Deleted)
	assert.Equal(t, []string{"42_p0.png"}, report.Created)

	exists, err := afero.Exists(f.fs, filepath.Join(f.paths.Original, "42_p0.jpg"))
	require.NoError(t, err)
	assert.False(t, exists)

	parts := 0
	for _, entry := range f.store.Files() {
		if entry.Record.Data.ID == 42 && entry.Record.Data.Part == 0 {
			parts++
			assert.Equal(t, "42_p0.png", entry.Name)
		}
	}
	assert.Equal(t, 1, parts)
	f.assertIntegrity(t)

	// A second pass finds nothing to do
	plan, err := f.engine.PlanDiff(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plan.Actions)
}

func TestDiff_ConflictWithChosenResolver(t *testing.T) {
	f := newFixture(t)
	f.seedImage(42, 4)
	f.writeOriginal(t, "42_p0.jpg", 10, 10)
	f.writeOriginal(t, "42_p0.png", 300, 200)

	e := New(f.fs, f.store, f.remote, Options{Paths: f.paths, Resolver: inventory.FirstCandidate}, nil)
	_, report, err := e.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"42_p0.png"}, report.Removed)
	assert.Equal(t, []string{"42_p0.jpg"}, report.Created)
}

func TestDiff_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.writeOriginal(t, "1_p0.png", 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.engine.Diff(ctx, DiffOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiff_CancelledMidPassStillPrunes(t *testing.T) {
	f := newFixture(t)
	f.seedImage(1, 10, "gone")
	f.store.UpsertFile("1_p0.png", store.File{ID: 1, Ext: "png", Size: store.Size{1, 1}})
	f.seedImage(3, 30)
	f.store.UpsertFile("3_p0.png", store.File{ID: 3, Ext: "png", Size: store.Size{5, 5}})
	f.writeOriginal(t, "3_p0.png", 10, 10)
	f.writeOriginal(t, "2_p0.png", 10, 10)
	f.remote.details[2] = illust(2, 20)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.remote.onDetail = func(int) { cancel() }

	_, report, err := f.engine.Diff(ctx, DiffOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	assert.Equal(t, []string{"1_p0.png"}, report.Deleted)
	assert.Empty(t, report.Refreshed)
	assert.Equal(t, []string{"1"}, report.Pruned.Images)
	assert.Equal(t, []string{"gone"}, report.Pruned.Tags)

	_, ok := f.store.Image(1)
	assert.False(t, ok)
	_, ok = f.store.Author(10)
	assert.False(t, ok)
	f.assertIntegrity(t)
}

func TestDiff_ReplacesRecordOfRenamedOriginal(t *testing.T) {
	f := newFixture(t)
	f.seedImage(42, 4)
	f.store.UpsertFile("42_p0.png", store.File{ID: 42, Ext: "png", Size: store.Size{10, 10}})
	f.writeOriginal(t, "42_p0.jpg", 10, 10)

	plan, err := f.engine.PlanDiff(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, ActionDeleteFile, plan.Actions[0].Type)
	assert.Equal(t, ActionCreateFile, plan.Actions[1].Type)

	report, err := f.engine.ApplyDiff(context.Background(), plan, DiffOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"42_p0.png"}, report.Deleted)
	assert.Equal(t, []string{"42_p0.jpg"}, report.Created)
	assert.Equal(t, 0, f.remote.detailCalls)

	name, ok := f.store.FileFor(42, 0)
	require.True(t, ok)
	assert.Equal(t, "42_p0.jpg", name)
	f.assertIntegrity(t)

	require.NoError(t, f.store.Save("/collection.json"))
	require.NoError(t, store.New(f.fs).Load("/collection.json"))
}

func TestDiff_ConflictReplacesStaleRecordOfThirdExtension(t *testing.T) {
	f := newFixture(t)
	f.seedImage(42, 4)
	f.store.UpsertFile("42_p0.gif", store.File{ID: 42, Ext: "gif", Size: store.Size{10, 10}})
	f.writeOriginal(t, "42_p0.jpg", 10, 10)
	f.writeOriginal(t, "42_p0.png", 300, 200)

	_, report, err := f.engine.Diff(context.Background(), DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"42_p0.gif"}, report.Deleted)
	assert.Equal(t, []string{"42_p0.png"}, report.Created)
	assert.Equal(t, 1, f.store.Stats().Files)
	f.assertIntegrity(t)

	require.NoError(t, f.store.Save("/collection.json"))
	require.NoError(t, store.New(f.fs).Load("/collection.json"))
}
