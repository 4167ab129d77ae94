package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/jackc/pgx/v5"
)

var _ courses.Repository = (*CourseRepository)(nil)

type CourseRepository struct {
	conn
}

const courseColumns = `id, code, name, university_id, university, review_count`

func scanCourse(row pgx.Row) (*courses.Course, error) {
	var course courses.Course
	if err := row.Scan(&course.ID, &course.Code, &course.Name, &course.UniversityID, &course.University, &course.ReviewCount); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context, filters courses.Filters, page pagination.Page) ([]courses.Course, error) {
	w := &whereBuilder{}
	if filters.Code != "" {
		w.add("code ILIKE ?", containsPattern(filters.Code))
	}
	if filters.University != "" {
		w.add("lower(university) = lower(?)", filters.University)
	}
	limit := w.placeholder(page.Limit)
	offset := w.placeholder(page.Skip)

	rows, err := r.queryer().Query(ctx, `SELECT `+courseColumns+` FROM courses`+w.sql()+
		` ORDER BY lower(university), lower(code), id LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	items := make([]courses.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		items = append(items, *course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return items, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*courses.Course, error) {
	course, err := scanCourse(r.queryer().QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, courses.ErrNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

func (r *CourseRepository) ProfessorTallies(ctx context.Context, course courses.Course) ([]courses.ProfessorTally, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT p.id, p.name, p.university, COUNT(rv.id), AVG(rv.overall_rating)::float8
  FROM reviews rv
  JOIN professors p
    ON lower(p.name) = lower(rv.professor_name)
   AND p.university_id = $3
 WHERE lower(rv.course_code) = lower($1)
   AND lower(rv.university_name) = lower($2)
 GROUP BY p.id, p.name, p.university
 ORDER BY p.name, p.id`, course.Code, course.University, course.UniversityID)
	if err != nil {
		return nil, fmt.Errorf("tally course professors: %w", err)
	}
	defer rows.Close()

	tallies := make([]courses.ProfessorTally, 0)
	for rows.Next() {
		var tally courses.ProfessorTally
		if err := rows.Scan(&tally.ProfessorID, &tally.Name, &tally.University, &tally.ReviewCount, &tally.AverageRating); err != nil {
			return nil, fmt.Errorf("scan professor tally: %w", err)
		}
		tallies = append(tallies, tally)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professor tallies: %w", err)
	}
	return tallies, nil
}
