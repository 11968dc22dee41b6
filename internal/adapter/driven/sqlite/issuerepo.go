package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.IssueStore = (*IssueRepo)(nil)

// IssueRepo is the SQLite implementation of the IssueStore port interface.
type IssueRepo struct {
	db *DB
}

// NewIssueRepo creates a new IssueRepo backed by the given DB.
func NewIssueRepo(db *DB) *IssueRepo {
	return &IssueRepo{db: db}
}

// Upsert inserts an issue or updates the row with the same repository and number.
func (r *IssueRepo) Upsert(ctx context.Context, issue model.Issue) error {
	const query = `
		INSERT INTO issues (repository_id, number, title, author, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(repository_id, number) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			created_at = excluded.created_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		issue.RepositoryID, issue.Number, issue.Title, issue.Author, formatTime(issue.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert issue #%d of repository %d: %w", issue.Number, issue.RepositoryID, err)
	}

	return nil
}

func (r *IssueRepo) Latest(ctx context.Context, repoID int64) (time.Time, bool, error) {
	return issuesTable.latest(ctx, r.db, repoID)
}

func (r *IssueRepo) DeleteOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error) {
	return issuesTable.deleteOlderThan(ctx, r.db, repoID, cutoff)
}

// Search returns issues matching criteria, newest first.
func (r *IssueRepo) Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.Issue, error) {
	where, args, ok := issuesTable.where(criteria)
	if !ok {
		return nil, nil
	}

	query := `SELECT id, repository_id, number, title, author, created_at FROM issues ` +
		where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		var issue model.Issue
		var createdAt string
		err := rows.Scan(&issue.ID, &issue.RepositoryID, &issue.Number, &issue.Title, &issue.Author, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issue.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}

	return issues, nil
}
