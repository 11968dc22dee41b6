package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db  *DB
	now func() time.Time
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db, now: time.Now}
}

// Add inserts a new repository. Returns ErrRepoAlreadyExists if a repository
// with the same full name is already tracked.
func (r *RepoRepo) Add(ctx context.Context, fullName string) (*model.Repository, error) {
	const query = `INSERT INTO repositories (full_name, added_at) VALUES (?, ?)`

	addedAt := r.now().UTC().Truncate(time.Second)

	result, err := r.db.Writer.ExecContext(ctx, query, fullName, formatTime(addedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("add repository %s: %w", fullName, driven.ErrRepoAlreadyExists)
		}
		return nil, fmt.Errorf("add repository %s: %w", fullName, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read repository id: %w", err)
	}

	return &model.Repository{ID: id, FullName: fullName, AddedAt: addedAt}, nil
}

// FindOrCreate returns the repository row for fullName, inserting it first if
// it is not tracked yet.
func (r *RepoRepo) FindOrCreate(ctx context.Context, fullName string) (*model.Repository, error) {
	repo, err := r.GetByFullName(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		return repo, nil
	}

	repo, err = r.Add(ctx, fullName)
	if errors.Is(err, driven.ErrRepoAlreadyExists) {
		// Lost a race with another writer; the row is there now.
		return r.GetByFullName(ctx, fullName)
	}

	return repo, err
}

// Remove deletes a repository by full name. Returns an error if the repository
// does not exist. The foreign key cascade removes its activity rows too.
func (r *RepoRepo) Remove(ctx context.Context, fullName string) error {
	const query = `DELETE FROM repositories WHERE full_name = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, fullName)
	if err != nil {
		return fmt.Errorf("remove repository %s: %w", fullName, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove repository %s: %w", fullName, driven.ErrRepoNotFound)
	}

	return nil
}

// GetByFullName retrieves a repository by its full name. Returns nil, nil if
// the repository does not exist.
func (r *RepoRepo) GetByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	const query = `SELECT id, full_name, added_at FROM repositories WHERE full_name = ?`

	// Read through the writer so FindOrCreate sees a row inserted a moment ago.
	repo, err := scanRepository(r.db.Writer.QueryRowContext(ctx, query, fullName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", fullName, err)
	}

	return repo, nil
}

// ListAll returns all repositories ordered by full name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	const query = `SELECT id, full_name, added_at FROM repositories ORDER BY full_name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var addedAt string

	err := s.Scan(&repo.ID, &repo.FullName, &addedAt)
	if err != nil {
		return nil, err
	}

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}

// storedTimeLayout is how every timestamp column is written. Fixed-width UTC
// text keeps lexicographic order equal to chronological order.
const storedTimeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(storedTimeLayout)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		storedTimeLayout,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
