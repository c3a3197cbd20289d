package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

var doctorSummaryColumns = []string{
	"id", "full_name", "specialty", "workplace", "workplace_type",
	"experience_years", "photo_url", "prepayment_amount",
	"status", "rating", "successful_visits_count", "created_at",
}

var doctorList = query.ListSpec{
	Columns: doctorSummaryColumns,
	From:    "doctors",
	Filters: []query.Filter{
		{Param: "status", Column: "status", Parse: query.AsEnum(model.DoctorStatuses...)},
		{Param: "specialty", Column: "specialty"},
		{Param: "workplace_type", Column: "workplace_type", Parse: query.AsEnum(model.WorkplaceTypes...)},
	},
	Search:  []string{"full_name", "specialty", "workplace"},
	OrderBy: "created_at DESC, id DESC",
}

var doctorUpdate = func() query.UpdateSpec {
	fields := []query.Field{
		{Key: "full_name", Column: "full_name", Decode: query.Text(255)},
		{Key: "specialty", Column: "specialty", Decode: query.Text(255)},
		{Key: "workplace", Column: "workplace", Decode: query.NullableText(255)},
		{Key: "workplace_type", Column: "workplace_type", Decode: query.NullableEnum(model.WorkplaceTypes...)},
		{Key: "experience_years", Column: "experience_years", Decode: query.Int(0, 80)},
		{Key: "photo_url", Column: "photo_url", Decode: query.NullableText(1000)},
		{Key: "description", Column: "description", Decode: query.NullableText(5000)},
		{Key: "prepayment_amount", Column: "prepayment_amount", Decode: query.Money()},
		{Key: "price_includes", Column: "price_includes", Decode: query.NullableText(2000)},
		{Key: "status", Column: "status", Decode: query.Enum(model.DoctorStatuses...)},
	}
	for _, name := range model.DoctorListFields {
		fields = append(fields, query.Field{Key: name, Column: name, Decode: query.JSON(model.NormalizeTextList)})
	}
	return query.UpdateSpec{
		Table:     "doctors",
		Key:       "id",
		Fields:    fields,
		Stamp:     "updated_at",
		Returning: []string{"id", "full_name", "specialty"},
	}
}()

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(db *sqlx.DB, m *metrics.Metrics, opts Options) repository.DoctorRepository {
	return &doctorRepository{BaseRepository: NewBaseRepository(db, m, opts)}
}

func (r *doctorRepository) Create(ctx context.Context, d *model.NewDoctor, now time.Time) (ref *model.DoctorRef, err error) {
	defer func(start time.Time) { r.observe("doctor_create", start, err) }(time.Now())

	stmt := `
		INSERT INTO doctors (
			full_name, specialty, workplace, workplace_type,
			experience_years, photo_url, description, prepayment_amount,
			price_includes, main_education, residency, additional_education,
			skills, work_directions, achievements, academic_degrees,
			publications, professional_societies, services_provided,
			consultation_types, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $22
		)
		RETURNING id, full_name, specialty`

	ref = &model.DoctorRef{}
	err = r.db.GetContext(ctx, ref, stmt,
		d.FullName, d.Specialty, d.Workplace, d.WorkplaceType,
		d.ExperienceYears, d.PhotoURL, d.Description, d.PrepaymentAmount,
		d.PriceIncludes, d.MainEducation, d.Residency, d.AdditionalEducation,
		d.Skills, d.WorkDirections, d.Achievements, d.AcademicDegrees,
		d.Publications, d.ProfessionalSocieties, d.ServicesProvided,
		d.ConsultationTypes, d.Status, now,
	)
	if err != nil {
		return nil, mapError(err, "doctor")
	}
	return ref, nil
}

func (r *doctorRepository) Get(ctx context.Context, id int64) (doctor *model.Doctor, err error) {
	defer func(start time.Time) { r.observe("doctor_get", start, err) }(time.Now())

	stmt := `
		SELECT id, full_name, specialty, workplace, workplace_type,
			experience_years, photo_url, prepayment_amount, status, rating,
			successful_visits_count, created_at, updated_at, description, price_includes,
			main_education, residency, additional_education, skills, work_directions,
			achievements, academic_degrees, publications, professional_societies,
			services_provided, consultation_types
		FROM doctors
		WHERE id = $1`

	doctor = &model.Doctor{}
	if err = r.db.GetContext(ctx, doctor, stmt, id); err != nil {
		return nil, mapError(err, "doctor")
	}
	return doctor, nil
}

func (r *doctorRepository) List(ctx context.Context, params query.Params) (page *model.Page[model.DoctorSummary], err error) {
	defer func(start time.Time) { r.observe("doctor_list", start, err) }(time.Now())
	return selectPage[model.DoctorSummary](ctx, r.db, r.window(doctorList), params, "doctor")
}

func (r *doctorRepository) Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (ref *model.DoctorRef, err error) {
	defer func(start time.Time) { r.observe("doctor_patch", start, err) }(time.Now())
	return patchOne[model.DoctorRef](ctx, r.db, doctorUpdate, id, patch, env, "doctor")
}

func (r *doctorRepository) Delete(ctx context.Context, id int64) (name string, err error) {
	defer func(start time.Time) { r.observe("doctor_delete", start, err) }(time.Now())

	if err = r.db.GetContext(ctx, &name, `DELETE FROM doctors WHERE id = $1 RETURNING full_name`, id); err != nil {
		return "", mapError(err, "doctor")
	}
	return name, nil
}
