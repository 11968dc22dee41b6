package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// activityTable holds the SQL shared by the four activity tables. Every one
// of them has repository_id and a single date column that drives watermarks,
// retention and date-window searches.
type activityTable struct {
	name    string
	dateCol string
}

var (
	commitsTable      = activityTable{name: "commits", dateCol: "committed_at"}
	pullRequestsTable = activityTable{name: "pull_requests", dateCol: "created_at"}
	issuesTable       = activityTable{name: "issues", dateCol: "created_at"}
	reviewsTable      = activityTable{name: "reviews", dateCol: "created_at"}
)

func (t activityTable) latest(ctx context.Context, db *DB, repoID int64) (time.Time, bool, error) {
	query := fmt.Sprintf(`SELECT MAX(%s) FROM %s WHERE repository_id = ?`, t.dateCol, t.name)

	var latest sql.NullString
	if err := db.Reader.QueryRowContext(ctx, query, repoID).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("latest %s for repository %d: %w", t.name, repoID, err)
	}

	if !latest.Valid {
		return time.Time{}, false, nil
	}

	ts, err := parseTime(latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse latest %s: %w", t.dateCol, err)
	}

	return ts, true, nil
}

func (t activityTable) deleteOlderThan(ctx context.Context, db *DB, repoID int64, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE repository_id = ? AND %s < ?`, t.name, t.dateCol)

	result, err := db.Writer.ExecContext(ctx, query, repoID, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune %s for repository %d: %w", t.name, repoID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return n, nil
}

// where renders the WHERE clause for criteria. ok is false when the criteria
// cannot match anything, in which case the caller skips the query.
func (t activityTable) where(criteria model.ActivityCriteria) (clause string, args []any, ok bool) {
	if len(criteria.RepositoryIDs) == 0 {
		return "", nil, false
	}

	var b strings.Builder
	b.WriteString("WHERE repository_id IN (")
	b.WriteString(placeholders(len(criteria.RepositoryIDs)))
	b.WriteString(")")
	for _, id := range criteria.RepositoryIDs {
		args = append(args, id)
	}

	if len(criteria.Authors) > 0 {
		b.WriteString(" AND author IN (")
		b.WriteString(placeholders(len(criteria.Authors)))
		b.WriteString(")")
		for _, a := range criteria.Authors {
			args = append(args, a)
		}
	}

	if !criteria.Since.IsZero() {
		fmt.Fprintf(&b, " AND %s >= ?", t.dateCol)
		args = append(args, formatTime(criteria.Since))
	}

	if !criteria.Until.IsZero() {
		fmt.Fprintf(&b, " AND %s < ?", t.dateCol)
		args = append(args, formatTime(criteria.Until))
	}

	return b.String(), args, true
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
