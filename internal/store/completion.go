package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
)

// keysPerQuery keeps ListByKeys under SQLite's bound-parameter limit.
const keysPerQuery = 400

type CompletionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db, now: time.Now}
}

const completionCols = `id, chore_id, occurrence_date, completed_by, completed_at, notes`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var notes sql.NullString
	err := scanner.Scan(&c.ID, &c.ChoreID, &c.OccurrenceDate, &c.CompletedBy, &c.CompletedAt, &notes)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		c.Notes = &notes.String
	}
	return &c, nil
}

// Create records that occurrence date of chore choreID was done. A second
// completion of the same occurrence returns ErrConflict and leaves the first
// untouched; an unknown chore returns ErrNotFound.
func (s *CompletionStore) Create(choreID int64, date time.Time, completedBy string, notes *string) (*model.Completion, error) {
	result, err := s.db.Exec(
		`INSERT INTO completions (chore_id, occurrence_date, completed_by, completed_at, notes)
		VALUES (?, ?, ?, ?, ?)`,
		choreID, recurrence.FormatDate(date), completedBy, s.now().UTC(), notes,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, fmt.Errorf("insert completion %d/%s: %w", choreID, recurrence.FormatDate(date), ErrConflict)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("insert completion: chore %d: %w", choreID, ErrNotFound)
		}
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CompletionStore) GetByID(id int64) (*model.Completion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// Delete removes the completion of one occurrence, returning ErrNotFound if
// it was not complete.
func (s *CompletionStore) Delete(choreID int64, date time.Time) error {
	result, err := s.db.Exec(
		`DELETE FROM completions WHERE chore_id = ? AND occurrence_date = ?`,
		choreID, recurrence.FormatDate(date),
	)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete completion %d/%s: %w", choreID, recurrence.FormatDate(date), ErrNotFound)
	}
	return nil
}

// ListByKeys fetches the completions of many occurrences at once. Keys with
// no completion are absent from the result.
func (s *CompletionStore) ListByKeys(keys []model.OccurrenceKey) (map[model.OccurrenceKey]model.Completion, error) {
	out := make(map[model.OccurrenceKey]model.Completion, len(keys))
	for start := 0; start < len(keys); start += keysPerQuery {
		end := min(start+keysPerQuery, len(keys))
		if err := s.listChunk(keys[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *CompletionStore) listChunk(keys []model.OccurrenceKey, out map[model.OccurrenceKey]model.Completion) error {
	placeholders := make([]string, len(keys))
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		placeholders[i] = "(?, ?)"
		args = append(args, k.ChoreID, k.Date)
	}

	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions
		WHERE (chore_id, occurrence_date) IN (VALUES `+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return fmt.Errorf("scan completion: %w", err)
		}
		out[model.OccurrenceKey{ChoreID: c.ChoreID, Date: c.OccurrenceDate}] = *c
	}
	return rows.Err()
}

// HistoryFilter selects a page of completion history. A nil ChoreID means
// every chore.
type HistoryFilter struct {
	ChoreID *int64
	Limit   int
	Offset  int
}

type HistoryPage struct {
	Total int                  `json:"total"`
	Items []model.HistoryEntry `json:"items"`
}

// History lists completions newest first with their chore titles.
func (s *CompletionStore) History(f HistoryFilter) (*HistoryPage, error) {
	where := ""
	var args []any
	if f.ChoreID != nil {
		where = " WHERE c.chore_id = ?"
		args = append(args, *f.ChoreID)
	}

	page := &HistoryPage{Items: []model.HistoryEntry{}}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM completions c`+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count completions: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT c.id, c.chore_id, c.occurrence_date, c.completed_by, c.completed_at, c.notes, ch.title
		FROM completions c
		JOIN chores ch ON ch.id = c.chore_id`+where+`
		ORDER BY c.completed_at DESC, c.id DESC
		LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.HistoryEntry
		var notes sql.NullString
		if err := rows.Scan(&e.ID, &e.ChoreID, &e.OccurrenceDate, &e.CompletedBy, &e.CompletedAt, &notes, &e.ChoreTitle); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if notes.Valid {
			e.Notes = &notes.String
		}
		page.Items = append(page.Items, e)
	}
	return page, rows.Err()
}
