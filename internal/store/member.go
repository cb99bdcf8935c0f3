package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorecal/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

// Create adds a member. A duplicate name returns ErrConflict.
func (s *MemberStore) Create(name string) (*model.Member, error) {
	result, err := s.db.Exec("INSERT INTO members (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert member %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *MemberStore) List() ([]model.Member, error) {
	rows, err := s.db.Query("SELECT id, name, created_at FROM members ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	var m model.Member
	err := s.db.QueryRow("SELECT id, name, created_at FROM members WHERE id = ?", id).
		Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return &m, nil
}

// Delete removes a member. Chores assigned to it become unassigned.
func (s *MemberStore) Delete(id int64) error {
	result, err := s.db.Exec("DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete member %d: %w", id, ErrNotFound)
	}
	return nil
}
