package postgres

import (
	"context"
	"fmt"

	"github.com/courserate-sg/server/internal/domain/search"
)

var _ search.Repository = (*CatalogRepository)(nil)

// CatalogRepository answers catalog-wide counting queries for search statistics.
type CatalogRepository struct {
	conn
}

func (r *CatalogRepository) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := r.queryer().QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (r *CatalogRepository) CountProfessors(ctx context.Context) (int, error) {
	return r.count(ctx, "professors")
}

func (r *CatalogRepository) CountCourses(ctx context.Context) (int, error) {
	return r.count(ctx, "courses")
}

func (r *CatalogRepository) CountUniversities(ctx context.Context) (int, error) {
	return r.count(ctx, "universities")
}

func (r *CatalogRepository) CountReviews(ctx context.Context) (int, error) {
	return r.count(ctx, "reviews")
}

func (r *CatalogRepository) ProfessorsByUniversity(ctx context.Context) (map[string]int, error) {
	return r.byUniversity(ctx, "professors")
}

func (r *CatalogRepository) CoursesByUniversity(ctx context.Context) (map[string]int, error) {
	return r.byUniversity(ctx, "courses")
}

// byUniversity counts table rows per university, including universities with none.
func (r *CatalogRepository) byUniversity(ctx context.Context, table string) (map[string]int, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT u.name, COUNT(t.id)
  FROM universities u
  LEFT JOIN `+table+` t ON t.university_id = u.id
 GROUP BY u.id, u.name`)
	if err != nil {
		return nil, fmt.Errorf("count %s by university: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", table, err)
		}
		counts[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s counts: %w", table, err)
	}
	return counts, nil
}
