package model

import "time"

// Commit is a commit observed on a specific branch of a repository. The same
// upstream commit seen on two branches is stored twice. CreatedAt is when the
// row was first stored.
type Commit struct {
	ID           int64
	RepositoryID int64
	Branch       string
	Message      string
	Author       string
	CommittedAt  time.Time
	CreatedAt    time.Time
}

// CommitKey is the deduplication key of a commit within one repository.
type CommitKey struct {
	Message     string
	Author      string
	CommittedAt time.Time
	Branch      string
}

// Key returns the deduplication key for c. CommittedAt is normalized to UTC
// seconds so keys built from the API and from the store compare equal.
func (c Commit) Key() CommitKey {
	return CommitKey{
		Message:     c.Message,
		Author:      c.Author,
		CommittedAt: c.CommittedAt.UTC().Truncate(time.Second),
		Branch:      c.Branch,
	}
}
