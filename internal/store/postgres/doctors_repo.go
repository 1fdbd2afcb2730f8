package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medbook/backend/internal/domain"
	"medbook/backend/internal/store"
)

// DoctorRepo is the postgres-backed provider directory.
type DoctorRepo struct {
	db *bun.DB
}

func NewDoctorRepo(db *bun.DB) *DoctorRepo {
	return &DoctorRepo{db: db}
}

func (r *DoctorRepo) Get(ctx context.Context, id uuid.UUID) (domain.Doctor, error) {
	var m domain.Doctor
	err := r.db.NewSelect().
		Model(&m).
		Where("d.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Doctor{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Doctor{}, err
	}
	return m, nil
}

func (r *DoctorRepo) List(ctx context.Context, search string) ([]domain.Doctor, error) {
	rows := make([]domain.Doctor, 0)
	q := r.db.NewSelect().
		Model(&rows).
		OrderExpr("d.name ASC")

	if s := strings.TrimSpace(search); s != "" {
		pattern := likePattern(s)
		q = q.Where("(d.name ILIKE ? OR d.specialization ILIKE ?)", pattern, pattern)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
