package model

import "time"

// DefaultReviewComment is stored when a review was submitted without a body.
const DefaultReviewComment = "No comment"

// Review is a review submitted on a pull request.
type Review struct {
	ID           int64
	RepositoryID int64
	ReviewID     int64 // GitHub's review ID; unique per repository.
	PRNumber     int
	Comment      string
	Author       string
	CreatedAt    time.Time
}
