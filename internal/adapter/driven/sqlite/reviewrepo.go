package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewStore = (*ReviewRepo)(nil)

// ReviewRepo is the SQLite implementation of the ReviewStore port interface.
type ReviewRepo struct {
	db *DB
}

// NewReviewRepo creates a new ReviewRepo backed by the given DB.
func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// Upsert inserts or updates a review keyed on its GitHub review ID. An empty
// comment is stored as model.DefaultReviewComment.
func (r *ReviewRepo) Upsert(ctx context.Context, review model.Review) error {
	const query = `
		INSERT INTO reviews (repository_id, review_id, pr_number, comment, author, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository_id, review_id) DO UPDATE SET
			pr_number = excluded.pr_number,
			comment = excluded.comment,
			author = excluded.author,
			created_at = excluded.created_at
	`

	comment := review.Comment
	if comment == "" {
		comment = model.DefaultReviewComment
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		review.RepositoryID, review.ReviewID, review.PRNumber, comment, review.Author, formatTime(review.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert review %d on #%d: %w", review.ReviewID, review.PRNumber, err)
	}

	return nil
}

func (r *ReviewRepo) Latest(ctx context.Context, repoID int64) (time.Time, bool, error) {
	return reviewsTable.latest(ctx, r.db, repoID)
}

func (r *ReviewRepo) DeleteOlderThan(ctx context.Context, repoID int64, cutoff time.Time) (int64, error) {
	return reviewsTable.deleteOlderThan(ctx, r.db, repoID, cutoff)
}

// Search returns reviews matching criteria, newest first.
func (r *ReviewRepo) Search(ctx context.Context, criteria model.ActivityCriteria) ([]model.Review, error) {
	where, args, ok := reviewsTable.where(criteria)
	if !ok {
		return nil, nil
	}

	query := `SELECT id, repository_id, review_id, pr_number, comment, author, created_at FROM reviews ` +
		where + ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

func scanReview(s scanner) (*model.Review, error) {
	var review model.Review
	var createdAt string

	err := s.Scan(&review.ID, &review.RepositoryID, &review.ReviewID, &review.PRNumber,
		&review.Comment, &review.Author, &createdAt)
	if err != nil {
		return nil, err
	}

	review.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &review, nil
}
