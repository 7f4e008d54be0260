package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSelfInitializesOnMissingFile(t *testing.T) {
	store := openTestStore(t)
	jobs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("loading from a fresh database: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs in a fresh database, got %d", len(jobs))
	}
}

func TestStoreUpsertAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	job := model.ScheduledJob{
		ID: "evening-on", CronExpr: "0 18 * * *", Action: model.ActionTurnOn,
		Target: model.Target{Kind: model.TargetGroup, ID: "projectors"}, Enabled: true,
	}
	next := time.Date(2026, 3, 6, 18, 0, 0, 0, time.UTC)

	if err := store.Upsert(job, next); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	jobs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	got := jobs[0]
	if got.Job.ID != job.ID || got.Job.CronExpr != job.CronExpr || got.Job.Target.String() != job.Target.String() {
		t.Fatalf("unexpected round-tripped job: %+v", got.Job)
	}
	if !got.NextRun.Equal(next) {
		t.Fatalf("expected next run %v, got %v", next, got.NextRun)
	}
}

func TestStoreUpsertReplacesExistingRow(t *testing.T) {
	store := openTestStore(t)
	job := model.ScheduledJob{ID: "j1", CronExpr: "0 8 * * *", Action: model.ActionTurnOn, Target: model.Target{Kind: model.TargetAll}, Enabled: true}
	store.Upsert(job, time.Now())

	job.Enabled = false
	job.CronExpr = "0 9 * * *"
	if err := store.Upsert(job, time.Now()); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	jobs, _ := store.LoadAll()
	if len(jobs) != 1 {
		t.Fatalf("expected the row to be replaced, not duplicated, got %d rows", len(jobs))
	}
	if jobs[0].Job.Enabled {
		t.Fatal("expected enabled=false after re-upsert")
	}
	if jobs[0].Job.CronExpr != "0 9 * * *" {
		t.Fatalf("expected updated cron_expr, got %q", jobs[0].Job.CronExpr)
	}
}

func TestStoreDeleteRemovesRow(t *testing.T) {
	store := openTestStore(t)
	job := model.ScheduledJob{ID: "j1", CronExpr: "0 8 * * *", Action: model.ActionTurnOn, Target: model.Target{Kind: model.TargetAll}, Enabled: true}
	store.Upsert(job, time.Now())

	if err := store.Delete("j1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	jobs, _ := store.LoadAll()
	if len(jobs) != 0 {
		t.Fatalf("expected job to be deleted, got %d remaining", len(jobs))
	}
}

func TestStoreDeleteUnknownIDIsNoop(t *testing.T) {
	store := openTestStore(t)
	if err := store.Delete("missing"); err != nil {
		t.Fatalf("expected no error deleting an unknown id, got %v", err)
	}
}
