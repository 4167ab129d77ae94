package postgres

import (
	"context"
	"fmt"

	"github.com/courserate-sg/server/internal/storage"
)

var _ storage.CountRepository = (*CountRepository)(nil)

// CountRepository keeps review_count on universities, courses and professors in step with reviews.
type CountRepository struct {
	conn
}

// An empty $1 refreshes every row.
const (
	refreshCourseCountsSQL = `
UPDATE courses c
   SET review_count = tally.n, updated_at = now()
  FROM (
    SELECT c2.id, COUNT(rv.id) AS n
      FROM courses c2
      LEFT JOIN reviews rv
        ON lower(rv.course_code) = lower(c2.code)
       AND lower(rv.university_name) = lower(c2.university)
     WHERE $1::text = '' OR lower(c2.university) = lower($1)
     GROUP BY c2.id
  ) tally
 WHERE c.id = tally.id AND c.review_count <> tally.n`

	refreshProfessorCountsSQL = `
UPDATE professors p
   SET review_count = tally.n, updated_at = now()
  FROM (
    SELECT p2.id, COUNT(rv.id) AS n
      FROM professors p2
      LEFT JOIN reviews rv
        ON lower(rv.professor_name) = lower(p2.name)
       AND lower(rv.university_name) = lower(p2.university)
     WHERE $1::text = '' OR lower(p2.university) = lower($1)
     GROUP BY p2.id
  ) tally
 WHERE p.id = tally.id AND p.review_count <> tally.n`

	refreshUniversityCountsSQL = `
UPDATE universities u
   SET review_count = tally.n, updated_at = now()
  FROM (
    SELECT u2.id, COUNT(rv.id) AS n
      FROM universities u2
      LEFT JOIN reviews rv ON lower(rv.university_name) = lower(u2.name)
     WHERE $1::text = '' OR lower(u2.name) = lower($1)
     GROUP BY u2.id
  ) tally
 WHERE u.id = tally.id AND u.review_count <> tally.n`
)

func (r *CountRepository) RefreshUniversity(ctx context.Context, university string) error {
	if university == "" {
		return fmt.Errorf("refresh counts: university is required")
	}
	_, err := r.refresh(ctx, university)
	return err
}

func (r *CountRepository) RefreshAll(ctx context.Context) (int64, error) {
	return r.refresh(ctx, "")
}

func (r *CountRepository) refresh(ctx context.Context, university string) (int64, error) {
	var changed int64
	err := r.withTx(ctx, func(c conn) error {
		for _, stmt := range []struct {
			name string
			sql  string
		}{
			{"courses", refreshCourseCountsSQL},
			{"professors", refreshProfessorCountsSQL},
			{"universities", refreshUniversityCountsSQL},
		} {
			tag, err := c.queryer().Exec(ctx, stmt.sql, university)
			if err != nil {
				return fmt.Errorf("refresh %s counts: %w", stmt.name, err)
			}
			changed += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
