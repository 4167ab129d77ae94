package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/jackc/pgx/v5"
)

var _ reviews.Repository = (*ReviewRepository)(nil)

type ReviewRepository struct {
	conn
}

const reviewColumns = `id, user_id, overall_rating, difficulty_rating, workload_rating, comment,
       semester, year, course_code, course_name, university_name, professor_name,
       created_at, updated_at`

// semesterOrderSQL mirrors reviews.SemesterOrder so SQL and Go agree on ordering.
var semesterOrderSQL = buildSemesterOrderSQL()

func buildSemesterOrderSQL() string {
	var b strings.Builder
	b.WriteString("CASE semester")
	for _, semester := range reviews.Semesters {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", semester, reviews.SemesterOrder(semester))
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}

var reviewOrderSQL = " ORDER BY year DESC, " + semesterOrderSQL + " DESC, created_at DESC, id DESC"

func scanReview(row pgx.Row) (*reviews.Review, error) {
	var review reviews.Review
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.OverallRating,
		&review.DifficultyRating,
		&review.WorkloadRating,
		&review.Comment,
		&review.Semester,
		&review.Year,
		&review.CourseCode,
		&review.CourseName,
		&review.University,
		&review.ProfessorName,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func reviewFilters(filters reviews.Filters) *whereBuilder {
	w := &whereBuilder{}
	if filters.ProfessorName != "" {
		w.add("lower(professor_name) = lower(?)", filters.ProfessorName)
	}
	if filters.CourseCode != "" {
		w.add("lower(course_code) = lower(?)", filters.CourseCode)
	}
	if filters.University != "" {
		w.add("lower(university_name) = lower(?)", filters.University)
	}
	if filters.UserID != "" {
		w.add("user_id = ?", filters.UserID)
	}
	return w
}

func (r *ReviewRepository) Create(ctx context.Context, params reviews.CreateParams) (*reviews.Review, error) {
	var userID, courseName *string
	if params.UserID != "" {
		userID = &params.UserID
	}
	if params.CourseName != "" {
		courseName = &params.CourseName
	}

	row := r.queryer().QueryRow(ctx, `
INSERT INTO reviews (user_id, overall_rating, difficulty_rating, workload_rating, comment,
                     semester, year, course_code, course_name, university_name, professor_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+reviewColumns,
		userID,
		params.OverallRating,
		params.DifficultyRating,
		params.WorkloadRating,
		params.Comment,
		params.Semester,
		params.Year,
		params.CourseCode,
		courseName,
		params.University,
		params.ProfessorName,
	)
	review, err := scanReview(row)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return review, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*reviews.Review, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reviews.ErrNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (r *ReviewRepository) List(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error) {
	w := reviewFilters(filters)
	limit := w.placeholder(page.Limit)
	offset := w.placeholder(page.Skip)

	query := `SELECT ` + reviewColumns + ` FROM reviews` + w.sql() + reviewOrderSQL +
		` LIMIT ` + limit + ` OFFSET ` + offset

	rows, err := r.queryer().Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	items := make([]reviews.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		items = append(items, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return items, nil
}

func (r *ReviewRepository) Update(ctx context.Context, id int64, params reviews.UpdateParams) (*reviews.Review, error) {
	w := &whereBuilder{}
	var sets []string
	set := func(column string, value any) {
		sets = append(sets, column+" = "+w.placeholder(value))
	}

	if params.OverallRating != nil {
		set("overall_rating", *params.OverallRating)
	}
	if params.DifficultyRating != nil {
		set("difficulty_rating", *params.DifficultyRating)
	}
	if params.WorkloadRating != nil {
		set("workload_rating", *params.WorkloadRating)
	}
	if params.ClearComment {
		sets = append(sets, "comment = NULL")
	} else if params.Comment != nil {
		set("comment", *params.Comment)
	}
	if params.Semester != nil {
		set("semester", *params.Semester)
	}
	if params.Year != nil {
		set("year", *params.Year)
	}
	if params.ClearProfessorName {
		sets = append(sets, "professor_name = NULL")
	} else if params.ProfessorName != nil {
		set("professor_name", *params.ProfessorName)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE reviews SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + w.placeholder(id) + ` RETURNING ` + reviewColumns

	review, err := scanReview(r.queryer().QueryRow(ctx, query, w.args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reviews.ErrNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reviews.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Aggregate(ctx context.Context, filters reviews.Filters) (reviews.Aggregate, error) {
	w := reviewFilters(filters)
	var agg reviews.Aggregate
	err := r.queryer().QueryRow(ctx, `
SELECT AVG(overall_rating)::float8, AVG(difficulty_rating)::float8, AVG(workload_rating)::float8, COUNT(*)
  FROM reviews`+w.sql(), w.args...).Scan(&agg.AvgOverall, &agg.AvgDifficulty, &agg.AvgWorkload, &agg.Count)
	if err != nil {
		return reviews.Aggregate{}, fmt.Errorf("aggregate reviews: %w", err)
	}
	return agg, nil
}

func (r *ReviewRepository) RatingCounts(ctx context.Context, filters reviews.Filters) (map[int]int, error) {
	w := reviewFilters(filters)
	rows, err := r.queryer().Query(ctx, `
SELECT overall_rating, COUNT(*)
  FROM reviews`+w.sql()+`
 GROUP BY overall_rating`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating count: %w", err)
		}
		counts[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating counts: %w", err)
	}
	return counts, nil
}

func (r *ReviewRepository) ProfessorNames(ctx context.Context, filters reviews.Filters) ([]string, error) {
	w := reviewFilters(filters)
	w.conditions = append(w.conditions, "professor_name IS NOT NULL", "professor_name <> ''")
	rows, err := r.queryer().Query(ctx, `
SELECT DISTINCT professor_name
  FROM reviews`+w.sql()+`
 ORDER BY professor_name`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list professor names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan professor name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professor names: %w", err)
	}
	return names, nil
}

// The get-or-create upserts rewrite the conflicting row with its own value so RETURNING
// yields it even when a concurrent transaction inserted it after this statement's snapshot.
func (r *ReviewRepository) GetOrCreateUniversity(ctx context.Context, name string) (*reviews.University, error) {
	var university reviews.University
	err := r.queryer().QueryRow(ctx, `
INSERT INTO universities (name) VALUES ($1)
ON CONFLICT ((lower(name))) DO UPDATE SET name = universities.name
RETURNING id, name`, name).Scan(&university.ID, &university.Name)
	if err != nil {
		return nil, fmt.Errorf("get or create university: %w", err)
	}
	return &university, nil
}

func (r *ReviewRepository) GetOrCreateCourse(ctx context.Context, code, name string, university reviews.University) (*reviews.CourseRef, error) {
	course := reviews.CourseRef{UniversityID: university.ID}
	var storedName *string
	err := r.queryer().QueryRow(ctx, `
INSERT INTO courses (code, name, university_id, university) VALUES ($1, $2, $3, $4)
ON CONFLICT (university_id, (lower(code))) DO UPDATE SET code = courses.code
RETURNING id, code, name`, code, name, university.ID, university.Name).Scan(&course.ID, &course.Code, &storedName)
	if err != nil {
		return nil, fmt.Errorf("get or create course: %w", err)
	}
	course.Name = derefString(storedName)
	return &course, nil
}

func (r *ReviewRepository) GetOrCreateProfessor(ctx context.Context, name string, university reviews.University) (*reviews.ProfessorRef, error) {
	professor := reviews.ProfessorRef{UniversityID: university.ID}
	err := r.queryer().QueryRow(ctx, `
INSERT INTO professors (name, university_id, university) VALUES ($1, $2, $3)
ON CONFLICT (university_id, (lower(name))) DO UPDATE SET name = professors.name
RETURNING id, name`, name, university.ID, university.Name).Scan(&professor.ID, &professor.Name)
	if err != nil {
		return nil, fmt.Errorf("get or create professor: %w", err)
	}
	return &professor, nil
}

func (r *ReviewRepository) WithTransaction(ctx context.Context, fn func(txRepo reviews.Repository) error) error {
	return r.withTx(ctx, func(c conn) error {
		return fn(&ReviewRepository{conn: c})
	})
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
