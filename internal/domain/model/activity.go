package model

import "time"

// ActivityItem is the normalized, read-only view of any activity record.
// Title holds the commit message for commits and the comment for reviews.
// State is only set for pull requests.
type ActivityItem struct {
	Kind       ActivityKind
	Title      string
	Author     string
	Date       time.Time
	Repository string
	State      PRState
}

// ActivityCriteria constrains a store search for one activity kind. An empty
// Authors slice means any author. Zero Since or Until leaves that side open;
// Until is exclusive.
type ActivityCriteria struct {
	RepositoryIDs []int64
	Authors       []string
	Since         time.Time
	Until         time.Time
}
