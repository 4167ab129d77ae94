package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/jackc/pgx/v5"
)

var _ professors.Repository = (*ProfessorRepository)(nil)

type ProfessorRepository struct {
	conn
}

const professorColumns = `id, name, university_id, university, review_count`

func scanProfessor(row pgx.Row) (*professors.Professor, error) {
	var professor professors.Professor
	if err := row.Scan(&professor.ID, &professor.Name, &professor.UniversityID, &professor.University, &professor.ReviewCount); err != nil {
		return nil, err
	}
	return &professor, nil
}

func (r *ProfessorRepository) List(ctx context.Context, filters professors.Filters, page pagination.Page) ([]professors.Professor, error) {
	w := &whereBuilder{}
	if filters.Name != "" {
		w.add("name ILIKE ?", containsPattern(filters.Name))
	}
	limit := w.placeholder(page.Limit)
	offset := w.placeholder(page.Skip)

	rows, err := r.queryer().Query(ctx, `SELECT `+professorColumns+` FROM professors`+w.sql()+
		` ORDER BY name, id LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	defer rows.Close()

	items := make([]professors.Professor, 0)
	for rows.Next() {
		professor, err := scanProfessor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan professor: %w", err)
		}
		items = append(items, *professor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate professors: %w", err)
	}
	return items, nil
}

func (r *ProfessorRepository) GetByID(ctx context.Context, id int64) (*professors.Professor, error) {
	professor, err := scanProfessor(r.queryer().QueryRow(ctx, `SELECT `+professorColumns+` FROM professors WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, professors.ErrNotFound
		}
		return nil, fmt.Errorf("get professor: %w", err)
	}
	return professor, nil
}
