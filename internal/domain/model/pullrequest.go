package model

import "time"

// PullRequest is a pull request authored in a tracked repository.
//
// UpdatedAt is the last update GitHub reports. It selects which pull requests
// have their reviews listed and is not stored.
type PullRequest struct {
	ID           int64
	RepositoryID int64
	Number       int
	Title        string
	Author       string
	State        PRState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LastActivity returns UpdatedAt, or CreatedAt when no update time is known.
func (pr PullRequest) LastActivity() time.Time {
	if pr.UpdatedAt.IsZero() {
		return pr.CreatedAt
	}
	return pr.UpdatedAt
}
