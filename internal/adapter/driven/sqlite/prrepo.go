package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

// Upsert inserts a pull request or refreshes title, author, state and
// created_at of the row with the same repository and number.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) error {
	const query = `
		INSERT INTO pull_requests (repository_id, number, title, author, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository_id, number) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			state = excluded.state,
			created_at = excluded.created_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		pr.RepositoryID, pr.Number, pr.Title, pr.Author, string(pr.State), formatTime(pr.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert pull request #%d of repository %d: %w", pr.Number, pr.RepositoryID, err)
	}

	return nil
}

// Latest returns the newest created_at stored for the repository.
func (r *PRRepo) Latest(ctx context.Context, repoID int64) (time.Time, bool, error) {
	return pullRequestsTable.latest(ctx, r.db, repoID)
}

// DeleteOlderThan removes pull requests created before cutoff.
func (r *PRRepo) DeleteOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error) {
	return pullRequestsTable.deleteOlderThan(ctx, r.db, repoID, cutoff)
}

// Search returns pull requests matching criteria, newest first.
func (r *PRRepo) Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.PullRequest, error) {
	where, args, ok := pullRequestsTable.where(criteria)
	if !ok {
		return nil, nil
	}

	query := `SELECT id, repository_id, number, title, author, state, created_at FROM pull_requests ` +
		where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var state, createdAt string

	if err := s.Scan(&pr.ID, &pr.RepositoryID, &pr.Number, &pr.Title, &pr.Author, &state, &createdAt); err != nil {
		return nil, err
	}

	pr.State = model.PRState(state)

	var err error
	pr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &pr, nil
}
