package application

import "errors"

// Sentinel errors returned by the application services.
var (
	// ErrInvalidRepoName indicates a repository name that is not "owner/repo".
	ErrInvalidRepoName = errors.New("invalid repository name")

	// ErrRemoteRepoNotFound indicates GitHub does not know the repository or
	// the token cannot see it.
	ErrRemoteRepoNotFound = errors.New("repository not found on GitHub")

	// ErrInvalidFilter indicates a malformed activity filter.
	ErrInvalidFilter = errors.New("invalid activity filter")

	// ErrSuperseded is returned to a feed refresh whose result was replaced
	// by a newer refresh before it completed.
	ErrSuperseded = errors.New("superseded by a newer query")

	// ErrSyncDisabled indicates syncing is not available, e.g. because no
	// GitHub token is configured.
	ErrSyncDisabled = errors.New("sync disabled")
)
