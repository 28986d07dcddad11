package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
)

func newReport(id, symbol, strategy string, created time.Time) *report.Report {
	return &report.Report{ID: id, Symbol: symbol, Strategy: strategy, CreatedAt: created}
}

func TestMemoryStore_ImplementsStore(t *testing.T) {
	var _ Store = (*MemoryStore)(nil)
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	if err := store.Save(ctx, newReport("r1", "AAPL", "trend", time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	r, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if r.Symbol != "AAPL" {
		t.Errorf("expected AAPL, got %s", r.Symbol)
	}

	_, err = store.GetByID(ctx, "missing")
	if !errors.Is(err, core.ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestMemoryStore_SaveRequiresID(t *testing.T) {
	store := NewMemoryStore(10)
	if err := store.Save(context.Background(), &report.Report{}); err == nil {
		t.Error("expected error for report without id")
	}
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("expected error for nil report")
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	now := time.Now()
	store.Save(ctx, newReport("a", "AAPL", "trend", now.Add(-2*time.Hour)))
	store.Save(ctx, newReport("b", "TSLA", "trend", now.Add(-time.Hour)))
	store.Save(ctx, newReport("c", "AAPL", "ma_crossover", now))

	all, _ := store.List(ctx, ListFilter{})
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	bySymbol, _ := store.List(ctx, ListFilter{Symbol: "AAPL"})
	if len(bySymbol) != 2 {
		t.Errorf("expected 2 AAPL reports, got %d", len(bySymbol))
	}

	byStrategy, _ := store.List(ctx, ListFilter{Strategy: "trend"})
	if len(byStrategy) != 2 {
		t.Errorf("expected 2 trend reports, got %d", len(byStrategy))
	}

	recent, _ := store.List(ctx, ListFilter{From: now.Add(-90 * time.Minute)})
	if len(recent) != 2 {
		t.Errorf("expected 2 recent reports, got %d", len(recent))
	}

	count, _ := store.Count(ctx, ListFilter{Symbol: "AAPL"})
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestMemoryStore_Pagination(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Save(ctx, newReport(fmt.Sprintf("r%d", i), "AAPL", "trend", time.Now()))
	}

	page, _ := store.List(ctx, ListFilter{Limit: 3, Offset: 2})
	if len(page) != 3 {
		t.Fatalf("expected 3, got %d", len(page))
	}
	if page[0].ID != "r7" {
		t.Errorf("expected r7 first, got %s", page[0].ID)
	}

	beyond, _ := store.List(ctx, ListFilter{Offset: 20})
	if len(beyond) != 0 {
		t.Errorf("expected empty page, got %d", len(beyond))
	}
}

func TestMemoryStore_MaxSize(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Save(ctx, newReport(fmt.Sprintf("r%d", i), "AAPL", "trend", time.Now()))
	}

	if store.Len() != 5 {
		t.Errorf("expected max 5, got %d", store.Len())
	}
	if _, err := store.GetByID(ctx, "r0"); err == nil {
		t.Error("oldest report should have been evicted")
	}
}
