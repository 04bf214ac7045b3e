package docstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"nxqueue/internal/docstore"
)

func openStore(t *testing.T) *docstore.Store {
	t.Helper()
	store, err := docstore.Open(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreate(t *testing.T, store *docstore.Store, doc *docstore.Document) {
	t.Helper()
	if err := store.Do(context.Background(), func(s *docstore.Session) error {
		return s.Create(doc)
	}); err != nil {
		t.Fatalf("Create %s failed: %v", doc.Path, err)
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustCreate(t, store, docstore.NewDocument(docstore.RootPath, "queues", docstore.TypeFolder))
	when := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	doc := docstore.NewDocument("/queues", "jobs", "QueueItem")
	doc.Set("owner", "nxqueue:owner#a")
	doc.Set("execution_count", 3)
	doc.SetTime("execute_time", &when)
	doc.Blob = []byte("payload")
	mustCreate(t, store, doc)

	var got *docstore.Document
	if err := store.Do(ctx, func(s *docstore.Session) error {
		var err error
		got, err = s.Get("/queues/jobs")
		return err
	}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID == "" || got.ParentPath != "/queues" || got.Type != "QueueItem" {
		t.Fatalf("unexpected document: %#v", got)
	}
	if got.String("owner") != "nxqueue:owner#a" || got.Int64("execution_count") != 3 {
		t.Fatalf("unexpected properties: %#v", got.Properties)
	}
	if ts := got.Time("execute_time"); ts == nil || !ts.Equal(when) {
		t.Fatalf("unexpected execute_time: %v", ts)
	}
	if diff := cmp.Diff([]byte("payload"), got.Blob); diff != "" {
		t.Fatalf("blob mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRejectsDuplicatesAndOrphans(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustCreate(t, store, docstore.NewDocument(docstore.RootPath, "a", docstore.TypeFolder))

	err := store.Do(ctx, func(s *docstore.Session) error {
		return s.Create(docstore.NewDocument(docstore.RootPath, "a", docstore.TypeFolder))
	})
	if !errors.Is(err, docstore.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	err = store.Do(ctx, func(s *docstore.Session) error {
		return s.Create(docstore.NewDocument("/missing", "b", docstore.TypeFolder))
	})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for orphan, got %v", err)
	}
}

func TestFailedUnitOfWorkRollsBack(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Do(ctx, func(s *docstore.Session) error {
		if err := s.Create(docstore.NewDocument(docstore.RootPath, "temp", docstore.TypeFolder)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var exists bool
	if err := store.Do(ctx, func(s *docstore.Session) error {
		var err error
		exists, err = s.Exists("/temp")
		return err
	}); err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected rolled back document to be absent")
	}
}

func TestQueryAndDeleteWhere(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustCreate(t, store, docstore.NewDocument(docstore.RootPath, "q", docstore.TypeFolder))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, owner := range []string{"o1", "o2", "o1"} {
		doc := docstore.NewDocument("/q", string(rune('a'+i)), "QueueItem")
		doc.Set("owner", owner)
		if i < 2 {
			ts := base.Add(time.Duration(i) * time.Hour)
			doc.SetTime("blacklist_time", &ts)
		}
		mustCreate(t, store, doc)
	}

	var names []string
	if err := store.Do(ctx, func(s *docstore.Session) error {
		docs, err := s.Query(docstore.Query{Parent: "/q", Equals: map[string]string{"owner": "o1"}})
		for _, d := range docs {
			names = append(names, d.Name)
		}
		return err
	}); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, names); diff != "" {
		t.Fatalf("owner query mismatch (-want +got):\n%s", diff)
	}

	var removed int64
	if err := store.Do(ctx, func(s *docstore.Session) error {
		var err error
		removed, err = s.DeleteWhere(docstore.Query{
			Parent: "/q",
			Before: &docstore.TimeBound{Property: "blacklist_time", Time: base.Add(30 * time.Minute)},
		})
		return err
	}); err != nil {
		t.Fatalf("DeleteWhere failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestDeleteRemovesDescendants(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustCreate(t, store, docstore.NewDocument(docstore.RootPath, "q", docstore.TypeFolder))
	mustCreate(t, store, docstore.NewDocument("/q", "child", "QueueItem"))
	mustCreate(t, store, docstore.NewDocument(docstore.RootPath, "q_sibling", docstore.TypeFolder))

	if err := store.Do(ctx, func(s *docstore.Session) error { return s.Delete("/q") }); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Do(ctx, func(s *docstore.Session) error {
		if ok, _ := s.Exists("/q/child"); ok {
			t.Fatal("expected child to be removed")
		}
		if ok, _ := s.Exists("/q_sibling"); !ok {
			t.Fatal("expected sibling to survive")
		}
		return nil
	}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	err := store.Do(ctx, func(s *docstore.Session) error { return s.Delete("/q") })
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestDoRetriesBusyTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked (5) (SQLITE_BUSY)"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM documents").
		WithArgs("/queues").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	store := docstore.NewWithDB(db, "mock.db")
	var exists bool
	if err := store.Do(context.Background(), func(s *docstore.Session) error {
		var err error
		exists, err = s.Exists("/queues")
		return err
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !exists {
		t.Fatal("expected document to exist")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("disk I/O error"))

	store := docstore.NewWithDB(db, "mock.db")
	err = store.Do(context.Background(), func(*docstore.Session) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	store := openStore(t)
	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.SchemaVersion != 1 || health.Documents != 1 {
		t.Fatalf("expected fresh store with root folder, got %#v", health)
	}
}
