package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"taskqueue/internal/queue"
	"taskqueue/internal/testsupport"
)

func mustMetadata(t *testing.T, raw string) queue.Metadata {
	t.Helper()
	meta, err := queue.DecodeMetadata(raw)
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	return meta
}

func ids(tasks []*queue.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func TestOpenCreatesHealthyDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.Healthy() {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if health.DBPath != cfg.DatabasePath() {
		t.Fatalf("unexpected db path %q", health.DBPath)
	}

	// Reopening an initialized database must not recreate the schema.
	again := testsupport.MustOpenStore(t, cfg)
	if again.Path() != store.Path() {
		t.Fatalf("expected same path, got %q and %q", again.Path(), store.Path())
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	store.Close()

	raw, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := raw.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	raw.Close()

	_, err = queue.Open(cfg)
	if !errors.Is(err, queue.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	meta := mustMetadata(t, `{"count": 12345678901234567, "ratio": 0.25, "tags": ["a", "b"], "nested": {"ok": true, "none": null}, "note": "<html> & stuff"}`)
	created := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	scheduled := created.Add(90 * time.Minute)
	task := testsupport.MustInsert(t, store, "Write report",
		testsupport.WithPriority(queue.PriorityHigh),
		testsupport.WithAssignee("alice"),
		testsupport.WithCreatedAt(created),
		testsupport.WithSchedule(scheduled),
		testsupport.WithMetadata(meta),
	)

	fetched, err := store.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Title != "Write report" || fetched.AssignedTo != "alice" {
		t.Fatalf("unexpected task: %+v", fetched)
	}
	if fetched.Status != queue.StatusPending || fetched.Priority != queue.PriorityHigh {
		t.Fatalf("unexpected status/priority: %s/%s", fetched.Status, fetched.Priority)
	}
	if !fetched.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: got %v want %v", fetched.CreatedAt, created)
	}
	if fetched.ScheduledFor == nil || !fetched.ScheduledFor.Equal(scheduled) {
		t.Fatalf("scheduled_for mismatch: %v", fetched.ScheduledFor)
	}
	if fetched.CompletedAt != nil {
		t.Fatalf("expected completed_at unset, got %v", fetched.CompletedAt)
	}
	if !reflect.DeepEqual(fetched.Metadata, meta) {
		t.Fatalf("metadata mismatch:\n got %#v\nwant %#v", fetched.Metadata, meta)
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	task := testsupport.MustInsert(t, store, "first")
	dup := testsupport.NewTask("second")
	dup.ID = task.ID
	err := store.Insert(context.Background(), dup)
	if !errors.Is(err, queue.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if queue.KindOf(err) != queue.KindDuplicateID {
		t.Fatalf("unexpected kind %q", queue.KindOf(err))
	}
}

func TestGetUnknownTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Get(context.Background(), "task_missing")
	var notFound *queue.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.ID != "task_missing" || !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateStatusIsConditional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	task := testsupport.MustInsert(t, store, "conditional")

	updated, err := store.UpdateStatus(ctx, task.ID, queue.StatusPending, queue.StatusInProgress, queue.StatusUpdate{})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != queue.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", updated.Status)
	}

	_, err = store.UpdateStatus(ctx, task.ID, queue.StatusPending, queue.StatusCancelled, queue.StatusUpdate{})
	var stale *queue.StaleError
	if !errors.As(err, &stale) {
		t.Fatalf("expected StaleError, got %v", err)
	}
	if stale.Current != queue.StatusInProgress || stale.Expected != queue.StatusPending {
		t.Fatalf("unexpected stale error: %+v", stale)
	}
	if !errors.Is(err, queue.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}

	_, err = store.UpdateStatus(ctx, "task_missing", queue.StatusPending, queue.StatusInProgress, queue.StatusUpdate{})
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatusMergesMetadataAndKeepsCompletedAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	task := testsupport.MustInsert(t, store, "merge",
		testsupport.WithMetadata(mustMetadata(t, `{"owner": "ops", "attempt": 2}`)),
	)

	first := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	updated, err := store.UpdateStatus(ctx, task.ID, queue.StatusPending, queue.StatusFailed, queue.StatusUpdate{
		CompletedAt: &first,
		SetMetadata: queue.Metadata{queue.MetadataKeyFailureReason: "disk full"},
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	want := mustMetadata(t, `{"owner": "ops", "attempt": 2, "failure_reason": "disk full"}`)
	if !reflect.DeepEqual(updated.Metadata, want) {
		t.Fatalf("metadata mismatch:\n got %#v\nwant %#v", updated.Metadata, want)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(first) {
		t.Fatalf("unexpected completed_at: %v", updated.CompletedAt)
	}

	// A later write through the store never replaces an existing completed_at.
	later := first.Add(time.Hour)
	again, err := store.UpdateStatus(ctx, task.ID, queue.StatusFailed, queue.StatusFailed, queue.StatusUpdate{CompletedAt: &later})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if !again.CompletedAt.Equal(first) {
		t.Fatalf("completed_at changed from %v to %v", first, again.CompletedAt)
	}
}

func TestUpdateStatusStoresStructuredResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	task := testsupport.MustInsert(t, store, "result")

	result := mustMetadata(t, `{"rows": 42, "files": ["a.csv"]}`)
	updated, err := store.UpdateStatus(ctx, task.ID, queue.StatusPending, queue.StatusCompleted, queue.StatusUpdate{
		SetMetadata: queue.Metadata{queue.MetadataKeyResult: map[string]any(result)},
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	got, ok := updated.Metadata[queue.MetadataKeyResult].(map[string]any)
	if !ok {
		t.Fatalf("expected result document, got %#v", updated.Metadata)
	}
	if !reflect.DeepEqual(got, map[string]any(result)) {
		t.Fatalf("result mismatch: %#v", got)
	}
}

func TestQueryPriorityOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	lowOld := testsupport.MustInsert(t, store, "low", testsupport.WithPriority(queue.PriorityLow), testsupport.WithCreatedAt(base))
	normalNew := testsupport.MustInsert(t, store, "normal new", testsupport.WithCreatedAt(base.Add(2*time.Second)))
	normalOld := testsupport.MustInsert(t, store, "normal old", testsupport.WithCreatedAt(base.Add(time.Second)))
	critical := testsupport.MustInsert(t, store, "critical", testsupport.WithPriority(queue.PriorityCritical), testsupport.WithCreatedAt(base.Add(3*time.Second)))
	// Scheduled earlier than it was created: sorts by its due time.
	normalDueEarly := testsupport.MustInsert(t, store, "normal due early",
		testsupport.WithCreatedAt(base.Add(4*time.Second)),
		testsupport.WithSchedule(base.Add(500*time.Millisecond)),
	)

	tasks, err := store.Query(ctx, queue.Filter{}, queue.OrderPriority, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := []string{critical.ID, normalDueEarly.ID, normalOld.ID, normalNew.ID, lowOld.ID}
	if got := ids(tasks); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order:\n got %v\nwant %v", got, want)
	}

	created, err := store.Query(ctx, queue.Filter{}, queue.OrderCreated, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got := ids(created); !reflect.DeepEqual(got, []string{lowOld.ID, normalOld.ID}) {
		t.Fatalf("unexpected created order: %v", got)
	}
}

func TestQueryFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	now := time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC)

	alice := testsupport.MustInsert(t, store, "alice high",
		testsupport.WithCreatedAt(now.Add(-4*time.Hour)),
		testsupport.WithAssignee("alice"),
		testsupport.WithPriority(queue.PriorityHigh),
		testsupport.WithMetadata(mustMetadata(t, `{"team": "infra", "sprint": 7, "urgent": true}`)),
	)
	future := testsupport.MustInsert(t, store, "alice later",
		testsupport.WithCreatedAt(now.Add(-3*time.Hour)),
		testsupport.WithAssignee("alice"),
		testsupport.WithSchedule(now.Add(time.Hour)),
	)
	bob := testsupport.MustInsert(t, store, "bob low",
		testsupport.WithCreatedAt(now.Add(-2*time.Hour)),
		testsupport.WithAssignee("bob"),
		testsupport.WithPriority(queue.PriorityLow),
		testsupport.WithMetadata(mustMetadata(t, `{"team": "web"}`)),
	)
	unassigned := testsupport.MustInsert(t, store, "nobody",
		testsupport.WithCreatedAt(now.Add(-time.Hour)),
		testsupport.WithSchedule(now.Add(-time.Hour)),
	)

	aliceName := "alice"
	empty := ""
	tests := []struct {
		name   string
		filter queue.Filter
		want   []string
	}{
		{"assignee", queue.Filter{AssignedTo: &aliceName}, []string{alice.ID, future.ID}},
		{"unassigned", queue.Filter{AssignedTo: &empty}, []string{unassigned.ID}},
		{"exact priority", queue.Filter{Priority: queue.PriorityLow}, []string{bob.ID}},
		{"min priority", queue.Filter{MinPriority: queue.PriorityNormal}, []string{alice.ID, future.ID, unassigned.ID}},
		{"ready", queue.Filter{Statuses: []queue.Status{queue.StatusPending}, ReadyBy: &now}, []string{alice.ID, bob.ID, unassigned.ID}},
		{"metadata string", queue.Filter{Metadata: map[string]any{"team": "infra"}}, []string{alice.ID}},
		{"metadata number", queue.Filter{Metadata: map[string]any{"sprint": 7}}, []string{alice.ID}},
		{"metadata bool", queue.Filter{Metadata: map[string]any{"urgent": true}}, []string{alice.ID}},
		{"metadata multiple", queue.Filter{Metadata: map[string]any{"team": "web", "sprint": 7}}, nil},
		{"status", queue.Filter{Statuses: []queue.Status{queue.StatusCompleted}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := store.Query(ctx, tt.filter, queue.OrderCreated, 0)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			got := ids(tasks)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
			count, err := store.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if count != len(tt.want) {
				t.Fatalf("Count = %d, want %d", count, len(tt.want))
			}
		})
	}
}

func TestQueryMetadataFilterMatchesJSONType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	typed := testsupport.MustInsert(t, store, "typed",
		testsupport.WithMetadata(mustMetadata(t, `{"flag": true, "off": false, "n": 1, "ratio": 1.5, "label": "1", "gone": null}`)),
	)
	testsupport.MustInsert(t, store, "untyped")

	tests := []struct {
		name   string
		filter map[string]any
		want   []string
	}{
		{"bool true", map[string]any{"flag": true}, []string{typed.ID}},
		{"bool false", map[string]any{"off": false}, []string{typed.ID}},
		{"number does not match true", map[string]any{"flag": 1}, nil},
		{"number does not match false", map[string]any{"off": 0}, nil},
		{"bool does not match number", map[string]any{"n": true}, nil},
		{"number", map[string]any{"n": 1}, []string{typed.ID}},
		{"number matches real", map[string]any{"ratio": 1.5}, []string{typed.ID}},
		{"string does not match number", map[string]any{"n": "1"}, nil},
		{"number does not match string", map[string]any{"label": 1}, nil},
		{"string", map[string]any{"label": "1"}, []string{typed.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := store.Query(ctx, queue.Filter{Metadata: tt.filter}, queue.OrderCreated, 0)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			got := ids(tasks)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestQueryRejectsInvalidFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	bad := []queue.Filter{
		{Statuses: []queue.Status{"stuck"}},
		{Priority: 9},
		{Metadata: map[string]any{`we"ird`: 1}},
		{Metadata: map[string]any{"doc": map[string]any{"a": 1}}},
	}
	for _, filter := range bad {
		if _, err := store.Query(ctx, filter, queue.OrderCreated, 0); !errors.Is(err, queue.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", filter, err)
		}
	}
}

func TestStatusAndAssigneeCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.MustInsert(t, store, "a", testsupport.WithAssignee("alice"))
	testsupport.MustInsert(t, store, "b", testsupport.WithAssignee("alice"))
	testsupport.MustInsert(t, store, "c", testsupport.WithAssignee("bob"))
	testsupport.MustInsert(t, store, "d")
	if _, err := store.UpdateStatus(ctx, a.ID, queue.StatusPending, queue.StatusInProgress, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	statuses, err := store.StatusCounts(ctx, queue.Filter{})
	if err != nil {
		t.Fatalf("StatusCounts failed: %v", err)
	}
	if statuses[queue.StatusPending] != 3 || statuses[queue.StatusInProgress] != 1 {
		t.Fatalf("unexpected status counts: %v", statuses)
	}

	assignees, err := store.AssigneeCounts(ctx, queue.Filter{})
	if err != nil {
		t.Fatalf("AssigneeCounts failed: %v", err)
	}
	if !reflect.DeepEqual(assignees, map[string]int{"alice": 2, "bob": 1}) {
		t.Fatalf("unexpected assignee counts: %v", assignees)
	}
}

func TestPurgeRemovesOnlyTerminalTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := testsupport.MustInsert(t, store, "done")
	pending := testsupport.MustInsert(t, store, "pending")
	finished := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := store.UpdateStatus(ctx, done.ID, queue.StatusPending, queue.StatusCompleted, queue.StatusUpdate{CompletedAt: &finished}); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if _, err := store.Purge(ctx, []queue.Status{queue.StatusPending}, time.Time{}); !errors.Is(err, queue.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput purging pending tasks, got %v", err)
	}

	removed, err := store.Purge(ctx, nil, time.Now().Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing older than 72h, removed %d", removed)
	}

	removed, err = store.Purge(ctx, nil, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged task, got %d", removed)
	}
	if _, err := store.Get(ctx, done.ID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected purged task to be gone, got %v", err)
	}
	if _, err := store.Get(ctx, pending.ID); err != nil {
		t.Fatalf("pending task should survive purge: %v", err)
	}
}

func TestConcurrentUpdateStatusHasOneWinner(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	first := testsupport.MustOpenStore(t, testsupport.NewConfig(t, testsupport.WithDatabasePath(dbPath), testsupport.WithBusyTimeout(2000)))
	second := testsupport.MustOpenStore(t, testsupport.NewConfig(t, testsupport.WithDatabasePath(dbPath), testsupport.WithBusyTimeout(2000)))
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		task := testsupport.MustInsert(t, first, "race")

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i, store := range []*queue.Store{first, second} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = store.UpdateStatus(ctx, task.ID, queue.StatusPending, queue.StatusInProgress, queue.StatusUpdate{})
			}()
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, queue.ErrStaleTransition):
			default:
				t.Fatalf("round %d: unexpected error: %v", round, err)
			}
		}
		if successes != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d (%v)", round, successes, errs)
		}
	}
}

func TestBusyDatabaseSurfacesStorageUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBusyTimeout(20), testsupport.WithBusyRetry(2, 1, 5))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	raw, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer raw.Close()
	conn, err := raw.Conn(ctx)
	if err != nil {
		t.Fatalf("raw conn: %v", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		t.Fatalf("begin immediate: %v", err)
	}

	err = store.Insert(ctx, testsupport.NewTask("blocked"))
	if !errors.Is(err, queue.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if queue.KindOf(err) != queue.KindStorageUnavailable {
		t.Fatalf("unexpected kind %q", queue.KindOf(err))
	}

	if _, err := conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := store.Insert(ctx, testsupport.NewTask("unblocked")); err != nil {
		t.Fatalf("insert after release failed: %v", err)
	}
}
