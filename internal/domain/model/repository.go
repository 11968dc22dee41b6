package model

import "time"

// Repository is a tracked GitHub repository. FullName ("owner/repo") is the
// natural key; ID is assigned by the store the first time it is seen.
type Repository struct {
	ID       int64
	FullName string
	AddedAt  time.Time
}
