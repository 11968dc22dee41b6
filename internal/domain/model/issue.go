package model

import "time"

// Issue is a GitHub issue that is not a pull request.
type Issue struct {
	ID           int64
	RepositoryID int64
	Number       int
	Title        string
	Author       string
	CreatedAt    time.Time
}
