package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/universities"
	"github.com/jackc/pgx/v5"
)

var _ universities.Repository = (*UniversityRepository)(nil)

type UniversityRepository struct {
	conn
}

func (r *UniversityRepository) List(ctx context.Context, filters universities.Filters, page pagination.Page) ([]universities.University, error) {
	w := &whereBuilder{}
	if filters.Name != "" {
		w.add("name ILIKE ?", containsPattern(filters.Name))
	}
	limit := w.placeholder(page.Limit)
	offset := w.placeholder(page.Skip)

	rows, err := r.queryer().Query(ctx, `SELECT id, name, review_count FROM universities`+w.sql()+
		` ORDER BY name, id LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list universities: %w", err)
	}
	defer rows.Close()

	items := make([]universities.University, 0)
	for rows.Next() {
		var university universities.University
		if err := rows.Scan(&university.ID, &university.Name, &university.ReviewCount); err != nil {
			return nil, fmt.Errorf("scan university: %w", err)
		}
		items = append(items, university)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate universities: %w", err)
	}
	return items, nil
}

func (r *UniversityRepository) GetByID(ctx context.Context, id int64) (*universities.University, error) {
	var university universities.University
	err := r.queryer().QueryRow(ctx, `SELECT id, name, review_count FROM universities WHERE id = $1`, id).
		Scan(&university.ID, &university.Name, &university.ReviewCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, universities.ErrNotFound
		}
		return nil, fmt.Errorf("get university: %w", err)
	}
	return &university, nil
}
