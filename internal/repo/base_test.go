package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseBind(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	tx := db.Begin()
	defer tx.Rollback()

	if bound := base.Bind(tx); bound.db != tx {
		t.Fatalf("expected bound base to use the transaction")
	}
	if same := base.Bind(nil); same.db != db {
		t.Fatalf("nil tx should keep the original connection")
	}
}

func TestBaseForUpdateAddsLock(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db.Session(&gorm.Session{DryRun: true}))

	type row struct{ ID int }
	stmt := base.ForUpdate(context.Background()).Table("stocks").Find(&[]row{}).Statement
	if _, ok := stmt.Clauses["FOR"]; !ok {
		t.Fatalf("expected FOR UPDATE clause on statement")
	}
}
