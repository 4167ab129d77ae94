package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSeedDataExists is returned by Seed when the catalog is non-empty and force is false.
var ErrSeedDataExists = errors.New("database already contains data")

type SeedResult struct {
	Universities int
	Professors   int
	Courses      int
	Reviews      int
}

type seedCourse struct {
	code, name, university string
}

type seedProfessor struct {
	name, university string
}

type seedReview struct {
	overall, difficulty, workload int
	comment                       string
	semester                      string
	year                          int
	courseCode                    string
	university                    string
	professor                     string
}

var (
	seedUniversities = []string{"NUS", "NTU", "SMU"}

	seedProfessors = []seedProfessor{
		{"Dr. Sarah Johnson", "NUS"},
		{"Prof. Michael Chen", "NTU"},
		{"Dr. Emily Rodriguez", "SMU"},
		{"Dr. Robert Kim", "NUS"},
	}

	seedCourses = []seedCourse{
		{"CS101", "Introduction to Computer Science", "NUS"},
		{"CS201", "Data Structures and Algorithms", "NTU"},
		{"MATH220", "Calculus II", "SMU"},
		{"PHYS101", "General Physics I", "NUS"},
	}

	seedReviews = []seedReview{
		{5, 2, 3, "Great intro to programming. Dr. Johnson explains topics clearly and makes learning fun!", "Semester 1", 2024, "CS101", "NUS", "Dr. Sarah Johnson"},
		{4, 3, 3, "Perfect for beginners. Fair assignments that reinforce the material. Highly recommended!", "Semester 1", 2024, "CS101", "NUS", "Dr. Sarah Johnson"},
		{4, 2, 2, "Well-structured course with clear learning objectives. Dr. Johnson is very supportive.", "Semester 2", 2024, "CS101", "NUS", "Dr. Sarah Johnson"},
		{3, 3, 4, "Good content but the pace can be a bit slow at times. Workload is heavier than expected.", "Semester 1", 2023, "CS101", "NUS", "Dr. Sarah Johnson"},
		{5, 4, 4, "Challenging but rewarding. Prof. Chen is knowledgeable and passionate about the subject.", "Semester 1", 2024, "CS201", "NTU", "Prof. Michael Chen"},
		{4, 5, 5, "Very demanding but you learn a lot. Be prepared to put in the hours. Weekly sets are tough.", "Semester 1", 2024, "CS201", "NTU", "Prof. Michael Chen"},
		{3, 4, 4, "The professor moves quite fast. Would be helpful to have more office hours for clarification.", "Semester 2", 2024, "CS201", "NTU", "Prof. Michael Chen"},
		{5, 4, 3, "Excellent course! The coding assignments really help solidify understanding of the concepts.", "Semester 1", 2023, "CS201", "NTU", "Prof. Michael Chen"},
		{4, 3, 3, "Dr. Rodriguez makes calculus approachable. Good balance of theory and application.", "Semester 1", 2024, "MATH220", "SMU", "Dr. Emily Rodriguez"},
		{3, 4, 4, "Content is dense and moves quickly. Make sure you keep up with the homework.", "Semester 1", 2024, "MATH220", "SMU", "Dr. Emily Rodriguez"},
		{5, 3, 2, "Best math professor I've had! Very clear explanations and helpful during office hours.", "Semester 2", 2024, "MATH220", "SMU", "Dr. Emily Rodriguez"},
		{4, 3, 3, "Engaging lectures with lots of demonstrations. Lab sessions are well-organized.", "Semester 1", 2024, "PHYS101", "NUS", "Dr. Robert Kim"},
		{3, 4, 4, "Lab reports take a lot of time. Make sure you understand the concepts before the lab.", "Semester 1", 2024, "PHYS101", "NUS", "Dr. Robert Kim"},
		{5, 2, 3, "Dr. Kim is fantastic! He really cares about student learning and is always available to help.", "Semester 2", 2024, "PHYS101", "NUS", "Dr. Robert Kim"},
		{2, 5, 5, "Extremely difficult. Exams way harder than homework. Felt unprepared despite studying.", "Semester 1", 2023, "CS201", "NTU", "Prof. Michael Chen"},
		{5, 1, 1, "Easy A if you have prior programming experience. Great for building confidence!", "Semester 1", 2023, "CS101", "NUS", "Dr. Sarah Johnson"},
		{1, 5, 5, "Too much work for the credits. Grading seems arbitrary and professor is hard to reach.", "Semester 1", 2023, "MATH220", "SMU", "Dr. Emily Rodriguez"},
	}
)

// Seed loads the sample catalog and reviews. With force it first truncates every table and
// resets identities; without it, existing data is left alone and ErrSeedDataExists returned.
func Seed(ctx context.Context, pool *pgxpool.Pool, force bool) (SeedResult, error) {
	repo := &Repository{conn: conn{pool: pool}}
	var result SeedResult

	err := repo.withTx(ctx, func(c conn) error {
		q := c.queryer()

		var existing int
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM universities`).Scan(&existing); err != nil {
			return fmt.Errorf("count universities: %w", err)
		}
		if existing > 0 {
			if !force {
				return fmt.Errorf("%w: %d universities", ErrSeedDataExists, existing)
			}
			if _, err := q.Exec(ctx, `TRUNCATE TABLE reviews, courses, professors, universities RESTART IDENTITY CASCADE`); err != nil {
				return fmt.Errorf("truncate: %w", err)
			}
		}

		universityIDs := make(map[string]int64, len(seedUniversities))
		for _, name := range seedUniversities {
			var id int64
			if err := q.QueryRow(ctx, `INSERT INTO universities (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
				return fmt.Errorf("insert university %s: %w", name, err)
			}
			universityIDs[name] = id
			result.Universities++
		}

		for _, p := range seedProfessors {
			if _, err := q.Exec(ctx,
				`INSERT INTO professors (name, university_id, university) VALUES ($1, $2, $3)`,
				p.name, universityIDs[p.university], p.university,
			); err != nil {
				return fmt.Errorf("insert professor %s: %w", p.name, err)
			}
			result.Professors++
		}

		courseNames := make(map[string]string, len(seedCourses))
		for _, course := range seedCourses {
			if _, err := q.Exec(ctx,
				`INSERT INTO courses (code, name, university_id, university) VALUES ($1, $2, $3, $4)`,
				course.code, course.name, universityIDs[course.university], course.university,
			); err != nil {
				return fmt.Errorf("insert course %s: %w", course.code, err)
			}
			courseNames[course.code] = course.name
			result.Courses++
		}

		for _, rv := range seedReviews {
			if _, err := q.Exec(ctx, `
INSERT INTO reviews (overall_rating, difficulty_rating, workload_rating, comment, semester, year,
                     course_code, course_name, university_name, professor_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				rv.overall, rv.difficulty, rv.workload, rv.comment, rv.semester, rv.year,
				rv.courseCode, courseNames[rv.courseCode], rv.university, rv.professor,
			); err != nil {
				return fmt.Errorf("insert review for %s: %w", rv.courseCode, err)
			}
			result.Reviews++
		}

		_, err := (&CountRepository{conn: c}).RefreshAll(ctx)
		return err
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
