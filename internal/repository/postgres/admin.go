package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
)

type adminRepository struct {
	BaseRepository
}

func NewAdminRepository(db *sqlx.DB, m *metrics.Metrics) repository.AdminRepository {
	return &adminRepository{BaseRepository: NewBaseRepository(db, m, Options{})}
}

func (r *adminRepository) Create(ctx context.Context, admin *model.Admin) (err error) {
	defer func(start time.Time) { r.observe("admin_create", start, err) }(time.Now())

	query := `
		INSERT INTO admins (email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at`

	now := time.Now().UTC()
	row := r.db.QueryRowxContext(ctx, query,
		admin.Email, admin.PasswordHash, admin.FullName, admin.Role, admin.IsActive, now)
	if err = row.Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		return mapError(err, "admin")
	}
	return nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (admin *model.Admin, err error) {
	defer func(start time.Time) { r.observe("admin_get_by_email", start, err) }(time.Now())

	query := `
		SELECT id, email, password_hash, full_name, role, is_active, last_login, created_at, updated_at
		FROM admins
		WHERE email = $1`

	admin = &model.Admin{}
	if err = r.db.GetContext(ctx, admin, query, email); err != nil {
		return nil, mapError(err, "admin")
	}
	return admin, nil
}

func (r *adminRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admins SET last_login = $1 WHERE id = $2`, at, id)
	return mapError(err, "admin")
}
