package application

import (
	"fmt"
	"strings"
)

// ValidateRepoName checks that name has the "owner/repo" form with only the
// characters GitHub allows in owner and repository names.
func ValidateRepoName(name string) error {
	if !isValidRepoName(name) {
		return fmt.Errorf("%w: %q, expected owner/repo", ErrInvalidRepoName, name)
	}
	return nil
}

func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
