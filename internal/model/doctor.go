package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DoctorStatus string

const (
	DoctorActive       DoctorStatus = "active"
	DoctorInactive     DoctorStatus = "inactive"
	DoctorOnModeration DoctorStatus = "on_moderation"
)

var DoctorStatuses = []DoctorStatus{DoctorActive, DoctorInactive, DoctorOnModeration}

type WorkplaceType string

const (
	WorkplaceHospital WorkplaceType = "hospital"
	WorkplaceClinic   WorkplaceType = "clinic"
	WorkplacePrivate  WorkplaceType = "private"
)

var WorkplaceTypes = []WorkplaceType{WorkplaceHospital, WorkplaceClinic, WorkplacePrivate}

// DoctorListFields are the structured profile lists stored as JSONB
var DoctorListFields = []string{
	"main_education", "residency", "additional_education", "skills",
	"work_directions", "achievements", "academic_degrees", "publications",
	"professional_societies", "services_provided", "consultation_types",
}

// DoctorSummary is a list row
type DoctorSummary struct {
	ID                    int64               `db:"id" json:"id"`
	FullName              string              `db:"full_name" json:"full_name"`
	Specialty             string              `db:"specialty" json:"specialty"`
	Workplace             *string             `db:"workplace" json:"workplace"`
	WorkplaceType         *WorkplaceType      `db:"workplace_type" json:"workplace_type"`
	ExperienceYears       int                 `db:"experience_years" json:"experience_years"`
	PhotoURL              *string             `db:"photo_url" json:"photo_url"`
	PrepaymentAmount      decimal.Decimal     `db:"prepayment_amount" json:"prepayment_amount"`
	Status                DoctorStatus        `db:"status" json:"status"`
	Rating                decimal.NullDecimal `db:"rating" json:"rating"`
	SuccessfulVisitsCount int                 `db:"successful_visits_count" json:"successful_visits_count"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
}

// DoctorProfile is the structured part of a doctor's card
type DoctorProfile struct {
	MainEducation         TextList `db:"main_education" json:"main_education"`
	Residency             TextList `db:"residency" json:"residency"`
	AdditionalEducation   TextList `db:"additional_education" json:"additional_education"`
	Skills                TextList `db:"skills" json:"skills"`
	WorkDirections        TextList `db:"work_directions" json:"work_directions"`
	Achievements          TextList `db:"achievements" json:"achievements"`
	AcademicDegrees       TextList `db:"academic_degrees" json:"academic_degrees"`
	Publications          TextList `db:"publications" json:"publications"`
	ProfessionalSocieties TextList `db:"professional_societies" json:"professional_societies"`
	ServicesProvided      TextList `db:"services_provided" json:"services_provided"`
	ConsultationTypes     TextList `db:"consultation_types" json:"consultation_types"`
}

// Doctor is the full record
type Doctor struct {
	DoctorSummary
	Description   *string   `db:"description" json:"description"`
	PriceIncludes *string   `db:"price_includes" json:"price_includes"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	DoctorProfile
}

// DoctorRef is returned by create and update
type DoctorRef struct {
	ID        int64  `db:"id" json:"id"`
	FullName  string `db:"full_name" json:"full_name"`
	Specialty string `db:"specialty" json:"specialty"`
}

// NewDoctor is the validated input of a create
type NewDoctor struct {
	FullName         string
	Specialty        string
	Workplace        *string
	WorkplaceType    *WorkplaceType
	ExperienceYears  int
	PhotoURL         *string
	Description      *string
	PrepaymentAmount decimal.Decimal
	PriceIncludes    *string
	Status           DoctorStatus
	DoctorProfile
}
