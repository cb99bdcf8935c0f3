package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/chorecal/internal/model"
	"github.com/dukerupert/chorecal/internal/recurrence"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, title, description, color, assignee_id,
	recurrence_type, recurrence_interval, recurrence_days_of_week, recurrence_day_of_month,
	start_date, end_date, created_at, updated_at`

// scanChore decodes a row leniently. An unknown recurrence type, a damaged
// weekday list or an unreadable date still produces a chore; expansion
// reports it later.
func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assigneeID, dayOfMonth sql.NullInt64
	var daysOfWeek, endDate sql.NullString
	var recType, startDate string
	var interval int

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.Color, &assigneeID,
		&recType, &interval, &daysOfWeek, &dayOfMonth,
		&startDate, &endDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assigneeID.Valid {
		c.AssigneeID = &assigneeID.Int64
	}

	f := recurrence.Fields{Type: recType, Interval: interval}
	if daysOfWeek.Valid && daysOfWeek.String != "" {
		// Unparseable lists decode as empty and fail validation at expansion.
		_ = json.Unmarshal([]byte(daysOfWeek.String), &f.DaysOfWeek)
	}
	if dayOfMonth.Valid {
		f.DayOfMonth = int(dayOfMonth.Int64)
	}
	c.Rule = recurrence.Decode(f)

	if start, err := recurrence.ParseDate(startDate); err != nil {
		c.DateDamage = fmt.Sprintf("start_date %q", startDate)
	} else {
		c.StartDate = start
	}
	if endDate.Valid && endDate.String != "" {
		if end, err := recurrence.ParseDate(endDate.String); err != nil {
			c.DateDamage = fmt.Sprintf("end_date %q", endDate.String)
		} else {
			c.EndDate = &end
		}
	}
	return &c, nil
}

// choreArgs flattens the mutable columns of c in choreCols order, minus id
// and timestamps.
func choreArgs(c model.Chore) ([]any, error) {
	f := recurrence.Encode(c.Rule)

	var daysOfWeek, dayOfMonth, endDate any
	if f.DaysOfWeek != nil {
		b, err := json.Marshal(f.DaysOfWeek)
		if err != nil {
			return nil, fmt.Errorf("marshal days of week: %w", err)
		}
		daysOfWeek = string(b)
	}
	if f.DayOfMonth != 0 {
		dayOfMonth = f.DayOfMonth
	}
	if c.EndDate != nil {
		endDate = recurrence.FormatDate(*c.EndDate)
	}

	color := c.Color
	if color == "" {
		color = model.DefaultChoreColor
	}

	return []any{
		c.Title, c.Description, color, c.AssigneeID,
		f.Type, f.Interval, daysOfWeek, dayOfMonth,
		recurrence.FormatDate(c.StartDate), endDate,
	}, nil
}

// Create validates and inserts a chore. An assignee that does not exist
// returns ErrNotFound.
func (s *ChoreStore) Create(c model.Chore) (*model.Chore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	args, err := choreArgs(c)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (title, description, color, assignee_id,
			recurrence_type, recurrence_interval, recurrence_days_of_week, recurrence_day_of_month,
			start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("insert chore: assignee: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("insert chore: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// Update replaces every mutable field of chore id.
func (s *ChoreStore) Update(id int64, c model.Chore) (*model.Chore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	args, err := choreArgs(c)
	if err != nil {
		return nil, err
	}
	args = append(args, id)

	result, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, color = ?, assignee_id = ?,
			recurrence_type = ?, recurrence_interval = ?, recurrence_days_of_week = ?, recurrence_day_of_month = ?,
			start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		args...,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("update chore: assignee: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("update chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update chore %d: %w", id, ErrNotFound)
	}
	return s.GetByID(id)
}

// Delete removes a chore and, through the foreign key, all its completions.
func (s *ChoreStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete chore %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *ChoreStore) List() ([]model.Chore, error) {
	return s.list(`SELECT ` + choreCols + ` FROM chores ORDER BY id ASC`)
}

// ListActive returns chores whose own date range overlaps [start, end].
// Stored dates are YYYY-MM-DD so text comparison orders them.
func (s *ChoreStore) ListActive(start, end time.Time) ([]model.Chore, error) {
	return s.list(
		`SELECT `+choreCols+` FROM chores
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id ASC`,
		recurrence.FormatDate(end), recurrence.FormatDate(start),
	)
}

func (s *ChoreStore) list(query string, args ...any) ([]model.Chore, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}
