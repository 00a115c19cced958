package recdb

import (
	"errors"
	"testing"
)

func newTestStore() *Store {
	return Open(Options{})
}

func TestTx_CreateIsInvisibleUntilCommit(t *testing.T) {
	s := newTestStore()
	tx := s.Transaction()

	rid, err := tx.Create(RecordOf(map[string]Value{"name": String("widget")}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Get(rid); !errors.As(err, new(*NotFoundError)) {
		t.Fatalf("Get outside tx before commit = %v, want NotFoundError", err)
	}
	if _, err := tx.Get(rid); err != nil {
		t.Fatalf("Get inside tx before commit: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.Get(rid); err != nil {
		t.Fatalf("Get after commit: %v", err)
	}
}

func TestTx_RollbackDiscardsOverlay(t *testing.T) {
	s := newTestStore()
	tx := s.Transaction()

	rid, err := tx.Create(RecordOf(map[string]Value{"name": String("widget")}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := s.Get(rid); !errors.As(err, new(*NotFoundError)) {
		t.Fatalf("Get after rollback = %v, want NotFoundError", err)
	}
}

func TestTx_UpdateMergesOverBase(t *testing.T) {
	s := newTestStore()
	rid, err := s.Create(RecordOf(map[string]Value{"name": String("widget"), "qty": Int(1)}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tx := s.Transaction()
	if err := tx.Update(rid, map[string]Value{"qty": Int(2)}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	view, err := tx.Get(rid)
	if err != nil {
		t.Fatalf("Get inside tx: %v", err)
	}
	qty, err := view.Get("qty")
	if err != nil || qty.AsInt() != 2 {
		t.Fatalf("qty inside tx = %v, %v; want 2", qty, err)
	}

	outsideView, err := s.Get(rid)
	if err != nil {
		t.Fatalf("Get outside tx: %v", err)
	}
	qty, err = outsideView.Get("qty")
	if err != nil || qty.AsInt() != 1 {
		t.Fatalf("qty outside tx = %v, %v; want unchanged 1", qty, err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	qty, err = outsideView.Get("qty")
	if err != nil || qty.AsInt() != 2 {
		t.Fatalf("qty after commit = %v, %v; want 2", qty, err)
	}
}

func TestTx_DeleteTombstonesUntilCommit(t *testing.T) {
	s := newTestStore()
	rid, err := s.Create(RecordOf(map[string]Value{"name": String("widget")}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tx := s.Transaction()
	if err := tx.Delete(rid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tx.Get(rid); !errors.As(err, new(*NotFoundError)) {
		t.Fatalf("Get inside tx after Delete = %v, want NotFoundError", err)
	}
	if _, err := s.Get(rid); err != nil {
		t.Fatalf("Get outside tx before commit: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := s.Get(rid); !errors.As(err, new(*NotFoundError)) {
		t.Fatalf("Get after commit = %v, want NotFoundError", err)
	}
}

func TestTx_QuerySeesOverlayUpdates(t *testing.T) {
	s := newTestStore()
	rid1, _ := s.Create(RecordOf(map[string]Value{"team": String("red")}))
	rid2, _ := s.Create(RecordOf(map[string]Value{"team": String("blue")}))

	tx := s.Transaction()
	row := tx.store.Row()
	if err := tx.Update(rid2, map[string]Value{"team": String("red")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	results, err := tx.Select().Where(row.Attr("team").Eq(String("red"))).Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, ok := results[rid1]; !ok {
		t.Errorf("expected %v (already red) in results", rid1)
	}
	if _, ok := results[rid2]; !ok {
		t.Errorf("expected %v (updated to red in overlay) in results", rid2)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2: %+v", len(results), results)
	}
}

func TestTx_CreateManyRollsBackOnDuplicate(t *testing.T) {
	s := newTestStore()
	existing, _ := s.Create(RecordOf(map[string]Value{"id": Int(5)}))

	tx := s.Transaction()
	_, err := tx.CreateMany([]*Record{
		RecordOf(map[string]Value{"id": Int(6)}),
		RecordOf(map[string]Value{"id": Int(existing.Int)}),
	})
	if err == nil {
		t.Fatalf("CreateMany: want error on duplicate id, got nil")
	}
	if tx.pendingCount() != 0 {
		t.Fatalf("pendingCount after rollback = %d, want 0", tx.pendingCount())
	}
}

func TestTx_OperationsAfterCloseFail(t *testing.T) {
	s := newTestStore()
	tx := s.Transaction()
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := tx.Create(NewRecord()); !errors.As(err, new(*TransactionClosedError)) {
		t.Fatalf("Create after close = %v, want TransactionClosedError", err)
	}
	if err := tx.Commit(); !errors.As(err, new(*TransactionClosedError)) {
		t.Fatalf("Commit after close = %v, want TransactionClosedError", err)
	}
}

func TestStore_WithTransactionCommitsOnSuccess(t *testing.T) {
	s := newTestStore()
	var rid Rid
	err := s.WithTransaction(func(tx *Tx) error {
		r, err := tx.Create(RecordOf(map[string]Value{"name": String("widget")}))
		rid = r
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}
	if _, err := s.Get(rid); err != nil {
		t.Fatalf("Get after WithTransaction: %v", err)
	}
}

func TestStore_WithTransactionRollsBackOnError(t *testing.T) {
	s := newTestStore()
	boom := errors.New("boom")
	var rid Rid
	err := s.WithTransaction(func(tx *Tx) error {
		r, createErr := tx.Create(RecordOf(map[string]Value{"name": String("widget")}))
		if createErr != nil {
			return createErr
		}
		rid = r
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction err = %v, want %v", err, boom)
	}
	if _, err := s.Get(rid); !errors.As(err, new(*NotFoundError)) {
		t.Fatalf("Get after rolled-back WithTransaction = %v, want NotFoundError", err)
	}
}
