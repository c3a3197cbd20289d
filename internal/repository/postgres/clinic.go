package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

const clinicFrom = `clinics c
	LEFT JOIN LATERAL (
		SELECT
			COUNT(*) AS total_orders_count,
			COUNT(*) FILTER (WHERE o.status = 'completed') AS completed_visits_count,
			COUNT(*) FILTER (WHERE o.status IN ('new', 'pending', 'confirmed', 'in_progress')) AS active_orders_count,
			COALESCE(SUM(COALESCE(o.actual_cost, o.estimated_cost)) FILTER (WHERE o.status = 'completed'), 0) AS total_orders_amount,
			ROUND(AVG(o.clinic_rating), 2) AS average_service_rating
		FROM orders o
		WHERE o.clinic_id = c.id
	) s ON TRUE`

var clinicColumns = []string{
	"c.id", "c.clinic_name", "c.email", "c.phone", "c.region", "c.city", "c.password_hash",
	"c.contact_person_name", "c.contact_person_position", "c.inn", "c.legal_address",
	"c.terms_accepted", "c.data_processing_accepted", "c.consent_date",
	"c.account_status", "c.admin_notes", "c.registration_date", "c.last_login", "c.updated_at",
	"s.total_orders_count", "s.completed_visits_count", "s.active_orders_count",
	"s.total_orders_amount", "s.average_service_rating",
}

var clinicList = query.ListSpec{
	Columns: clinicColumns,
	From:    clinicFrom,
	Filters: []query.Filter{
		{Param: "status", Column: "c.account_status", Parse: query.AsEnum(model.ClinicStatuses...)},
		{Param: "region", Column: "c.region"},
		{Param: "city", Column: "c.city"},
	},
	Search:  []string{"c.clinic_name", "c.email", "c.city"},
	OrderBy: "c.registration_date DESC, c.id DESC",
}

var clinicUpdate = query.UpdateSpec{
	Table: "clinics",
	Key:   "id",
	Fields: []query.Field{
		{Key: "account_status", Column: "account_status", Decode: query.Enum(model.ClinicStatuses...)},
		{Key: "admin_notes", Column: "admin_notes", Decode: query.NullableText(5000)},
	},
	Stamp:     "updated_at",
	Returning: []string{"id", "clinic_name", "email", "account_status"},
}

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(db *sqlx.DB, m *metrics.Metrics, opts Options) repository.ClinicRepository {
	return &clinicRepository{BaseRepository: NewBaseRepository(db, m, opts)}
}

func (r *clinicRepository) Register(ctx context.Context, clinic *model.NewClinic) (out *model.Clinic, err error) {
	defer func(start time.Time) { r.observe("clinic_register", start, err) }(time.Now())

	stmt := `
		INSERT INTO clinics (
			clinic_name, email, phone, region, city, password_hash,
			contact_person_name, contact_person_position, inn, legal_address,
			terms_accepted, data_processing_accepted, consent_date,
			account_status, registration_date, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, TRUE, $11, 'on_moderation', $11, $11)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`

	var id int64
	err = r.db.GetContext(ctx, &id, stmt,
		clinic.ClinicName, clinic.Email, clinic.Phone, clinic.Region, clinic.City, clinic.PasswordHash,
		clinic.ContactPersonName, clinic.ContactPersonPosition, clinic.INN, clinic.LegalAddress,
		clinic.ConsentDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// DO NOTHING returned no row: the email is already registered
			return nil, apperrors.Conflict("clinic with this email already exists", err)
		}
		return nil, mapError(err, "clinic")
	}

	return r.Get(ctx, id)
}

func (r *clinicRepository) Get(ctx context.Context, id int64) (clinic *model.Clinic, err error) {
	defer func(start time.Time) { r.observe("clinic_get", start, err) }(time.Now())
	return r.getWhere(ctx, "c.id", id)
}

func (r *clinicRepository) GetByEmail(ctx context.Context, email string) (clinic *model.Clinic, err error) {
	defer func(start time.Time) { r.observe("clinic_get_by_email", start, err) }(time.Now())
	return r.getWhere(ctx, "c.email", email)
}

func (r *clinicRepository) getWhere(ctx context.Context, column string, value interface{}) (*model.Clinic, error) {
	lq, err := clinicList.Build(query.Params{Limit: 1}.Where(column, value))
	if err != nil {
		return nil, err
	}

	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, lq.Page.SQL, lq.Page.Args...); err != nil {
		return nil, mapError(err, "clinic")
	}
	return &clinic, nil
}

func (r *clinicRepository) List(ctx context.Context, params query.Params) (page *model.Page[model.Clinic], err error) {
	defer func(start time.Time) { r.observe("clinic_list", start, err) }(time.Now())
	return selectPage[model.Clinic](ctx, r.db, r.window(clinicList), params, "clinic")
}

func (r *clinicRepository) Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (out *model.ClinicSummary, err error) {
	defer func(start time.Time) { r.observe("clinic_patch", start, err) }(time.Now())
	return patchOne[model.ClinicSummary](ctx, r.db, clinicUpdate, id, patch, env, "clinic")
}

func (r *clinicRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE clinics SET last_login = $1 WHERE id = $2`, at, id)
	return mapError(err, "clinic")
}
