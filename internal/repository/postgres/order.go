package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

var orderColumns = []string{
	"o.id", "o.clinic_id", "o.doctor_id", "o.visit_date", "o.visit_time",
	"o.patient_count", "o.service_type", "o.urgency_level", "o.status",
	"o.contact_person", "o.contact_phone", "o.contact_email",
	"o.visit_address", "o.visit_city", "o.visit_region",
	"o.special_requirements", "o.estimated_cost", "o.actual_cost",
	"o.payment_status", "o.prepayment_paid", "o.clinic_comments",
	"o.admin_notes", "o.clinic_rating", "o.created_at", "o.updated_at",
	"o.confirmed_at", "o.completed_at", "o.cancelled_at", "o.assigned_by_admin_id",
}

var orderViewColumns = append(append([]string{}, orderColumns...),
	"c.clinic_name", "c.email AS clinic_email", "c.phone AS clinic_phone",
	"d.full_name AS doctor_name", "d.specialty AS doctor_specialty",
)

var orderDetailColumns = append(append([]string{}, orderViewColumns...),
	"c.region AS clinic_region", "c.city AS clinic_city",
	"d.experience_years", "d.photo_url AS doctor_photo",
)

const orderFrom = `orders o
	LEFT JOIN clinics c ON o.clinic_id = c.id
	LEFT JOIN doctors d ON o.doctor_id = d.id`

var orderList = query.ListSpec{
	Columns: orderViewColumns,
	From:    orderFrom,
	Filters: []query.Filter{
		{Param: "status", Column: "o.status", Parse: query.AsEnum(model.OrderStatuses...)},
		{Param: "clinic_id", Column: "o.clinic_id", Parse: query.AsInt64},
		{Param: "doctor_id", Column: "o.doctor_id", Parse: query.AsInt64},
		{Param: "urgency", Column: "o.urgency_level", Parse: query.AsEnum(model.Urgencies...)},
		{Param: "payment_status", Column: "o.payment_status", Parse: query.AsEnum(model.PaymentStatuses...)},
	},
	Search:  []string{"c.clinic_name", "o.contact_person", "o.visit_city"},
	OrderBy: "o.created_at DESC, o.id DESC",
}

var orderUpdate = query.UpdateSpec{
	Table: "orders",
	Key:   "id",
	Fields: []query.Field{
		{Key: "doctor_id", Column: "doctor_id", Decode: query.NullableID()},
		{Key: "status", Column: "status", Decode: query.Enum(model.OrderStatuses...)},
		{Key: "visit_date", Column: "visit_date", Decode: query.Date()},
		{Key: "visit_time", Column: "visit_time", Decode: query.NullableClock()},
		{Key: "estimated_cost", Column: "estimated_cost", Decode: query.NullableMoney()},
		{Key: "actual_cost", Column: "actual_cost", Decode: query.NullableMoney()},
		{Key: "payment_status", Column: "payment_status", Decode: query.Enum(model.PaymentStatuses...)},
		{Key: "admin_notes", Column: "admin_notes", Decode: query.NullableText(5000)},
		{Key: "urgency_level", Column: "urgency_level", Decode: query.Enum(model.Urgencies...)},
	},
	Rules: []query.Rule{
		query.StampWhen("status", string(model.OrderConfirmed), "confirmed_at"),
		query.StampWhen("status", string(model.OrderCompleted), "completed_at"),
		query.StampWhen("status", string(model.OrderCancelled), "cancelled_at"),
		query.ActorOn("doctor_id", "assigned_by_admin_id"),
	},
	Stamp:     "updated_at",
	Returning: []string{"id", "status"},
}

// unqualified strips table aliases for use in RETURNING
func unqualified(columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if dot := strings.IndexByte(col, '.'); dot >= 0 {
			col = col[dot+1:]
		}
		out[i] = col
	}
	return out
}

type orderRepository struct {
	BaseRepository
}

func NewOrderRepository(db *sqlx.DB, m *metrics.Metrics, opts Options) repository.OrderRepository {
	return &orderRepository{BaseRepository: NewBaseRepository(db, m, opts)}
}

func (r *orderRepository) Create(ctx context.Context, o *model.NewOrder, now time.Time) (order *model.Order, err error) {
	defer func(start time.Time) { r.observe("order_create", start, err) }(time.Now())

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var clinicStatus model.ClinicStatus
		err := tx.GetContext(ctx, &clinicStatus, `SELECT account_status FROM clinics WHERE id = $1 FOR SHARE`, o.ClinicID)
		if err != nil {
			return mapError(err, "clinic")
		}
		if clinicStatus != model.ClinicActive {
			return apperrors.Forbidden("clinic account is not active")
		}

		if o.DoctorID != nil {
			var doctorStatus model.DoctorStatus
			err := tx.GetContext(ctx, &doctorStatus, `SELECT status FROM doctors WHERE id = $1 FOR SHARE`, *o.DoctorID)
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.Validation("doctor not found", err)
			}
			if err != nil {
				return mapError(err, "doctor")
			}
			if doctorStatus != model.DoctorActive {
				return apperrors.Validationf("doctor %d is not available", *o.DoctorID)
			}
		}

		stmt := `
			INSERT INTO orders (
				clinic_id, doctor_id, visit_date, visit_time, patient_count, service_type,
				urgency_level, status, contact_person, contact_phone, contact_email,
				visit_address, visit_city, visit_region, special_requirements,
				clinic_comments, estimated_cost, payment_status, prepayment_paid,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, 'new', $8, $9, $10, $11, $12, $13, $14,
				$15, $16, 'unpaid', FALSE, $17, $17
			)
			RETURNING ` + strings.Join(unqualified(orderColumns), ", ")

		order = &model.Order{}
		err = tx.GetContext(ctx, order, stmt,
			o.ClinicID, o.DoctorID, o.VisitDate, o.VisitTime, o.PatientCount, o.ServiceType,
			o.UrgencyLevel, o.ContactPerson, o.ContactPhone, o.ContactEmail,
			o.VisitAddress, o.VisitCity, o.VisitRegion, o.SpecialRequirements,
			o.ClinicComments, o.EstimatedCost, now,
		)
		return mapError(err, "order")
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (order *model.OrderDetail, err error) {
	defer func(start time.Time) { r.observe("order_get", start, err) }(time.Now())

	spec := orderList
	spec.Columns = orderDetailColumns
	lq, err := spec.Build(query.Params{Limit: 1}.Where("o.id", id))
	if err != nil {
		return nil, err
	}

	order = &model.OrderDetail{}
	if err = r.db.GetContext(ctx, order, lq.Page.SQL, lq.Page.Args...); err != nil {
		return nil, mapError(err, "order")
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, params query.Params) (page *model.Page[model.OrderView], err error) {
	defer func(start time.Time) { r.observe("order_list", start, err) }(time.Now())
	return selectPage[model.OrderView](ctx, r.db, r.window(orderList), params, "order")
}

func (r *orderRepository) Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (ref *model.OrderRef, err error) {
	defer func(start time.Time) { r.observe("order_patch", start, err) }(time.Now())
	return patchOne[model.OrderRef](ctx, r.db, orderUpdate, id, patch, env, "order")
}
