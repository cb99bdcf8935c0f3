package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
)

func setupCompletionTest(t *testing.T) (*CompletionStore, *ChoreStore) {
	t.Helper()
	db := setupTestDB(t)
	return NewCompletionStore(db), NewChoreStore(db)
}

func createDailyChore(t *testing.T, cs *ChoreStore, title string) *model.Chore {
	t.Helper()
	c, err := cs.Create(model.Chore{Title: title, Rule: recurrence.Daily{Interval: 1}, StartDate: date(t, "2024-01-01")})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func TestCompletionCreateAndDuplicate(t *testing.T) {
	comps, cs := setupCompletionTest(t)
	chore := createDailyChore(t, cs, "Water plants")

	fixed := time.Date(2024, 1, 3, 18, 30, 0, 0, time.UTC)
	comps.now = func() time.Time { return fixed }

	notes := "used the blue can"
	c, err := comps.Create(chore.ID, date(t, "2024-01-03"), "Alice", &notes)
	if err != nil {
		t.Fatalf("create completion: %v", err)
	}
	if c.OccurrenceDate != "2024-01-03" {
		t.Errorf("occurrence date = %q", c.OccurrenceDate)
	}
	if c.CompletedBy != "Alice" {
		t.Errorf("completed by = %q", c.CompletedBy)
	}
	if !c.CompletedAt.Equal(fixed) {
		t.Errorf("completed at = %v, want %v", c.CompletedAt, fixed)
	}
	if c.Notes == nil || *c.Notes != notes {
		t.Errorf("notes = %v", c.Notes)
	}

	_, err = comps.Create(chore.ID, date(t, "2024-01-03"), "Bob", nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: err = %v, want ErrConflict", err)
	}

	got, err := comps.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompletedBy != "Alice" {
		t.Errorf("duplicate overwrote completion: completed by = %q", got.CompletedBy)
	}
}

func TestCompletionUnknownChore(t *testing.T) {
	comps, _ := setupCompletionTest(t)

	_, err := comps.Create(404, date(t, "2024-01-01"), "Alice", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCompletionDeleteAndRedo(t *testing.T) {
	comps, cs := setupCompletionTest(t)
	chore := createDailyChore(t, cs, "Feed cat")

	first := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	comps.now = func() time.Time { return first }
	if _, err := comps.Create(chore.ID, date(t, "2024-01-05"), "Alice", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := comps.Delete(chore.ID, date(t, "2024-01-05")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := comps.Delete(chore.ID, date(t, "2024-01-05")); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}

	second := first.Add(2 * time.Hour)
	comps.now = func() time.Time { return second }
	c, err := comps.Create(chore.ID, date(t, "2024-01-05"), "Bob", nil)
	if err != nil {
		t.Fatalf("redo: %v", err)
	}
	if !c.CompletedAt.Equal(second) {
		t.Errorf("completed at = %v, want fresh %v", c.CompletedAt, second)
	}
	if c.CompletedBy != "Bob" {
		t.Errorf("completed by = %q, want Bob", c.CompletedBy)
	}
}

func TestCompletionConcurrentCreate(t *testing.T) {
	db := setupFileDB(t)
	cs := NewChoreStore(db)
	comps := NewCompletionStore(db)
	chore := createDailyChore(t, cs, "Vacuum")

	const rounds, writers = 20, 16
	start := date(t, "2024-01-02")
	for round := range rounds {
		day := start.AddDate(0, 0, round)
		var g errgroup.Group
		errs := make([]error, writers)
		for i := range errs {
			g.Go(func() error {
				_, errs[i] = comps.Create(chore.ID, day, fmt.Sprintf("member-%d", i), nil)
				return nil
			})
		}
		g.Wait()

		var ok, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("round %d: unexpected error: %v", round, err)
			}
		}
		if ok != 1 || conflicts != writers-1 {
			t.Errorf("round %d: ok = %d, conflicts = %d, want 1 and %d", round, ok, conflicts, writers-1)
		}
	}
}

func TestCompletionListByKeys(t *testing.T) {
	comps, cs := setupCompletionTest(t)
	a := createDailyChore(t, cs, "A")
	b := createDailyChore(t, cs, "B")

	for _, k := range []struct {
		id   int64
		date string
	}{{a.ID, "2024-01-01"}, {a.ID, "2024-01-03"}, {b.ID, "2024-01-01"}} {
		if _, err := comps.Create(k.id, date(t, k.date), "Alice", nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	keys := []model.OccurrenceKey{
		{ChoreID: a.ID, Date: "2024-01-01"},
		{ChoreID: a.ID, Date: "2024-01-02"},
		{ChoreID: b.ID, Date: "2024-01-01"},
		{ChoreID: b.ID, Date: "2024-01-03"},
	}
	got, err := comps.ListByKeys(keys)
	if err != nil {
		t.Fatalf("list by keys: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 completions, got %d: %v", len(got), got)
	}
	if _, ok := got[keys[0]]; !ok {
		t.Errorf("missing %v", keys[0])
	}
	if _, ok := got[keys[2]]; !ok {
		t.Errorf("missing %v", keys[2])
	}

	empty, err := comps.ListByKeys(nil)
	if err != nil {
		t.Fatalf("list by no keys: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty map, got %v", empty)
	}
}

func TestCompletionListByKeysChunks(t *testing.T) {
	comps, cs := setupCompletionTest(t)
	chore := createDailyChore(t, cs, "Daily")

	start := date(t, "2024-01-01")
	var keys []model.OccurrenceKey
	for i := range keysPerQuery + 50 {
		d := start.AddDate(0, 0, i)
		keys = append(keys, model.NewOccurrenceKey(chore.ID, d))
		if i%100 == 0 {
			if _, err := comps.Create(chore.ID, d, "Alice", nil); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
	}

	got, err := comps.ListByKeys(keys)
	if err != nil {
		t.Fatalf("list by keys: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("expected 5 completions across chunks, got %d", len(got))
	}
}

func TestCompletionHistory(t *testing.T) {
	comps, cs := setupCompletionTest(t)
	a := createDailyChore(t, cs, "Laundry")
	b := createDailyChore(t, cs, "Dishes")

	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, k := range []struct {
		id   int64
		date string
	}{{a.ID, "2024-01-01"}, {b.ID, "2024-01-01"}, {a.ID, "2024-01-02"}} {
		at := base.Add(time.Duration(i) * time.Hour)
		comps.now = func() time.Time { return at }
		if _, err := comps.Create(k.id, date(t, k.date), "Alice", nil); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := comps.History(HistoryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("total = %d, want 3", page.Total)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.Items[0].ChoreTitle != "Laundry" || page.Items[0].OccurrenceDate != "2024-01-02" {
		t.Errorf("newest = %+v", page.Items[0])
	}
	if page.Items[1].ChoreTitle != "Dishes" {
		t.Errorf("second = %+v", page.Items[1])
	}

	page, err = comps.History(HistoryFilter{Limit: 10, Offset: 2})
	if err != nil {
		t.Fatalf("history offset: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].OccurrenceDate != "2024-01-01" {
		t.Errorf("offset page = %+v", page.Items)
	}

	page, err = comps.History(HistoryFilter{ChoreID: &b.ID, Limit: 10})
	if err != nil {
		t.Fatalf("history by chore: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ChoreID != b.ID {
		t.Errorf("filtered page = %+v", page)
	}
}

func TestCompletionCascadeOnChoreDelete(t *testing.T) {
	comps, cs := setupCompletionTest(t)
	chore := createDailyChore(t, cs, "Mop")

	if _, err := comps.Create(chore.ID, date(t, "2024-01-01"), "Alice", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := cs.Delete(chore.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}

	page, err := comps.History(HistoryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("total = %d, want 0 after cascade", page.Total)
	}
}
