package sqlstd

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"reqtx/internal/infrastructure/persistence/schema"
	"reqtx/internal/infrastructure/persistence/sqltx"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "sqlstd.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := schema.NewGormStore(db).Init(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return sqlDB
}

func TestNumberRepositoryRequiresTransaction(t *testing.T) {
	repo := NewNumberRepository()

	if _, err := repo.Count(context.Background()); !errors.Is(err, txscope.ErrMissingSlot) {
		t.Fatalf("Count() error = %v, want ErrMissingSlot", err)
	}
}

func TestNumberRepositoryRoundTrip(t *testing.T) {
	db := setupDB(t)
	repo := NewNumberRepository()
	layer := txscope.NewLayer[*sql.Tx](sqltx.NewBeginner(db, nil))
	ctx := context.Background()

	resp, err := layer.Run(ctx, func(ctx context.Context) (*txscope.Response, error) {
		for _, v := range []int64{5, 7} {
			n, err := repo.Insert(ctx, v)
			if err != nil {
				return nil, err
			}
			if n.ID == 0 || n.CreatedAt.IsZero() {
				t.Fatalf("Insert(%d) = %+v", v, n)
			}
		}
		return &txscope.Response{Status: 201}, nil
	})
	if err != nil || resp.Status != 201 {
		t.Fatalf("Run() = %v, %v", resp, err)
	}

	var seen []int64
	_, err = layer.Run(ctx, func(ctx context.Context) (*txscope.Response, error) {
		count, err := repo.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count != 2 {
			t.Fatalf("Count() = %d, want 2", count)
		}
		err = repo.Each(ctx, func(n ports.Number) error {
			seen = append(seen, n.Value)
			return nil
		})
		return &txscope.Response{Status: 200}, err
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(seen) != 2 || seen[0] != 5 || seen[1] != 7 {
		t.Fatalf("Each() = %v", seen)
	}
}

func TestNumberRepositoryFailedStatusRollsBack(t *testing.T) {
	db := setupDB(t)
	repo := NewNumberRepository()
	layer := txscope.NewLayer[*sql.Tx](sqltx.NewBeginner(db, nil))

	if _, err := layer.Run(context.Background(), func(ctx context.Context) (*txscope.Response, error) {
		if _, err := repo.Insert(ctx, 1); err != nil {
			return nil, err
		}
		return &txscope.Response{Status: 418}, nil
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM numbers`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}
}
