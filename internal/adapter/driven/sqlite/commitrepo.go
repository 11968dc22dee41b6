package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommitStore = (*CommitRepo)(nil)

// CommitRepo is the SQLite implementation of the CommitStore port interface.
type CommitRepo struct {
	db  *DB
	now func() time.Time
}

// NewCommitRepo creates a new CommitRepo backed by the given DB.
func NewCommitRepo(db *DB) *CommitRepo {
	return &CommitRepo{db: db, now: time.Now}
}

const insertCommitQuery = `
	INSERT INTO commits (repository_id, branch, message, author, committed_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(repository_id, message, author, committed_at, branch) DO NOTHING
`

// InsertBatch inserts commits in one transaction. A failure anywhere rolls the
// whole batch back. Every new row gets the same created_at.
func (r *CommitRepo) InsertBatch(ctx context.Context, commits []model.Commit) (int, error) {
	if len(commits) == 0 {
		return 0, nil
	}

	createdAt := formatTime(r.now())
	var inserted int
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertCommitQuery)
		if err != nil {
			return fmt.Errorf("prepare commit insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range commits {
			result, err := stmt.ExecContext(ctx, c.RepositoryID, c.Branch, c.Message, c.Author, formatTime(c.CommittedAt), createdAt)
			if err != nil {
				return fmt.Errorf("insert commit on %s: %w", c.Branch, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("check rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// Insert inserts a single commit and reports whether a new row was written.
func (r *CommitRepo) Insert(ctx context.Context, c model.Commit) (bool, error) {
	result, err := r.db.Writer.ExecContext(ctx, insertCommitQuery,
		c.RepositoryID, c.Branch, c.Message, c.Author, formatTime(c.CommittedAt), formatTime(r.now()),
	)
	if err != nil {
		return false, fmt.Errorf("insert commit on %s: %w", c.Branch, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return n > 0, nil
}

// Keys returns the dedup keys of every commit stored for the repository.
func (r *CommitRepo) Keys(ctx context.Context, repoID int64) (map[model.CommitKey]struct{}, error) {
	const query = `SELECT branch, message, author, committed_at FROM commits WHERE repository_id = ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("query commit keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[model.CommitKey]struct{})
	for rows.Next() {
		var key model.CommitKey
		var committedAt string
		err := rows.Scan(&key.Branch, &key.Message, &key.Author, &committedAt)
		if err != nil {
			return nil, fmt.Errorf("scan commit key: %w", err)
		}
		key.CommittedAt, err = parseTime(committedAt)
		if err != nil {
			return nil, fmt.Errorf("parse committed_at: %w", err)
		}
		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commit keys: %w", err)
	}

	return keys, nil
}

// Latest returns the newest committed_at stored for the repository.
func (r *CommitRepo) Latest(ctx context.Context, repoID int64) (time.Time, bool, error) {
	return commitsTable.latest(ctx, r.db, repoID)
}

// DeleteOlderThan removes commits committed before cutoff.
func (r *CommitRepo) DeleteOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error) {
	return commitsTable.deleteOlderThan(ctx, r.db, repoID, cutoff)
}

// Search returns commits matching criteria, newest first.
func (r *CommitRepo) Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.Commit, error) {
	where, args, ok := commitsTable.where(criteria)
	if !ok {
		return nil, nil
	}

	query := `SELECT id, repository_id, branch, message, author, committed_at, created_at FROM commits ` +
		where + ` ORDER BY committed_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	var commits []model.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	return commits, nil
}

func scanCommit(s scanner) (*model.Commit, error) {
	var c model.Commit
	var committedAt, createdAt string

	if err := s.Scan(&c.ID, &c.RepositoryID, &c.Branch, &c.Message, &c.Author, &committedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	c.CommittedAt, err = parseTime(committedAt)
	if err != nil {
		return nil, fmt.Errorf("parse committed_at: %w", err)
	}
	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &c, nil
}
