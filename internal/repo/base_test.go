package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uuid.UUID `gorm:"type:text;primaryKey"`
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	if got := base.DB(ctx).Statement.Context; got != ctx {
		t.Fatalf("expected context to flow through, got %v", got)
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw handle")
	}
}

func TestBindUsesTransaction(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.Bind(nil).db != db {
		t.Fatalf("nil tx should keep the pool handle")
	}

	id := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		bound := base.Bind(tx)
		if err := bound.DB(context.Background()).Create(&widget{ID: id, Name: "mug"}).Error; err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	if err == nil {
		t.Fatalf("expected rollback error")
	}
	found, err := FirstOrNil[widget](base.DB(context.Background()).Where("id = ?", id))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found != nil {
		t.Fatalf("row written through Bind should roll back with the tx")
	}
}

func TestFirstOrNil(t *testing.T) {
	db := newTestDB(t)
	id := uuid.New()
	if err := db.Create(&widget{ID: id, Name: "pen"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	found, err := FirstOrNil[widget](db.Where("id = ?", id))
	if err != nil || found == nil || found.Name != "pen" {
		t.Fatalf("expected pen, got %+v err=%v", found, err)
	}
	missing, err := FirstOrNil[widget](db.Where("id = ?", uuid.New()))
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing row, got %+v err=%v", missing, err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike("  50%_Off\\ "); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}
