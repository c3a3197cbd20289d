package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auth request types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type ClinicRegisterRequest struct {
	ClinicName             string  `json:"clinic_name" binding:"required,max=255"`
	Email                  string  `json:"email" binding:"required,email,max=255"`
	Phone                  string  `json:"phone" binding:"required,phone"`
	Region                 string  `json:"region" binding:"required,max=255"`
	City                   string  `json:"city" binding:"required,max=255"`
	Password               string  `json:"password" binding:"required,min=8,max=72"`
	ContactPersonName      string  `json:"contact_person_name" binding:"required,max=255"`
	ContactPersonPosition  *string `json:"contact_person_position" binding:"omitempty,max=255"`
	INN                    *string `json:"inn" binding:"omitempty,max=32"`
	LegalAddress           *string `json:"legal_address" binding:"omitempty,max=500"`
	TermsAccepted          bool    `json:"terms_accepted"`
	DataProcessingAccepted bool    `json:"data_processing_accepted"`
}

// Auth response types
type AdminSession struct {
	Admin     AdminProfile `json:"admin"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type ClinicSession struct {
	Clinic    ClinicSummary `json:"clinic"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Admin-side action bodies
type ClinicStatusRequest struct {
	Status ClinicStatus `json:"status" binding:"required"`
}

type ClinicNotesRequest struct {
	Notes *string `json:"notes"`
}

type DoctorCreateRequest struct {
	FullName              string          `json:"full_name" binding:"required,max=255"`
	Specialty             string          `json:"specialty" binding:"required,max=255"`
	Workplace             *string         `json:"workplace" binding:"omitempty,max=255"`
	WorkplaceType         *WorkplaceType  `json:"workplace_type" binding:"omitempty,oneof=hospital clinic private"`
	ExperienceYears       int             `json:"experience_years" binding:"gte=0,lte=80"`
	PhotoURL              *string         `json:"photo_url" binding:"omitempty,max=1000"`
	Description           *string         `json:"description" binding:"omitempty,max=5000"`
	PrepaymentAmount      decimal.Decimal `json:"prepayment_amount"`
	PriceIncludes         *string         `json:"price_includes" binding:"omitempty,max=2000"`
	Status                DoctorStatus    `json:"status" binding:"omitempty,oneof=active inactive on_moderation"`
	MainEducation         []string        `json:"main_education"`
	Residency             []string        `json:"residency"`
	AdditionalEducation   []string        `json:"additional_education"`
	Skills                []string        `json:"skills"`
	WorkDirections        []string        `json:"work_directions"`
	Achievements          []string        `json:"achievements"`
	AcademicDegrees       []string        `json:"academic_degrees"`
	Publications          []string        `json:"publications"`
	ProfessionalSocieties []string        `json:"professional_societies"`
	ServicesProvided      []string        `json:"services_provided"`
	ConsultationTypes     []string        `json:"consultation_types"`
}

type OrderCreateRequest struct {
	DoctorID            *int64              `json:"doctor_id" binding:"omitempty,gt=0"`
	VisitDate           Date                `json:"visit_date"`
	VisitTime           *string             `json:"visit_time"`
	PatientCount        int                 `json:"patient_count" binding:"omitempty,gte=1,lte=1000"`
	ServiceType         *string             `json:"service_type" binding:"omitempty,max=255"`
	UrgencyLevel        Urgency             `json:"urgency_level" binding:"omitempty,oneof=normal urgent emergency"`
	ContactPerson       string              `json:"contact_person" binding:"required,max=255"`
	ContactPhone        string              `json:"contact_phone" binding:"required,phone"`
	ContactEmail        *string             `json:"contact_email" binding:"omitempty,email,max=255"`
	VisitAddress        string              `json:"visit_address" binding:"required,max=500"`
	VisitCity           string              `json:"visit_city" binding:"required,max=255"`
	VisitRegion         *string             `json:"visit_region" binding:"omitempty,max=255"`
	SpecialRequirements *string             `json:"special_requirements" binding:"omitempty,max=2000"`
	ClinicComments      *string             `json:"clinic_comments" binding:"omitempty,max=2000"`
	EstimatedCost       decimal.NullDecimal `json:"estimated_cost"`
}
