package model

// PRState represents the state of a pull request as reported by GitHub.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// ActivityKind identifies which record type an ActivityItem was projected from.
type ActivityKind string

const (
	ActivityCommit      ActivityKind = "commit"
	ActivityPullRequest ActivityKind = "pull_request"
	ActivityIssue       ActivityKind = "issue"
	ActivityReview      ActivityKind = "review"
)

// ActivityKinds lists every kind in the fixed order used when merging results.
var ActivityKinds = []ActivityKind{
	ActivityCommit,
	ActivityPullRequest,
	ActivityIssue,
	ActivityReview,
}
