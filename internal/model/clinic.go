package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClinicStatus string

const (
	ClinicOnModeration ClinicStatus = "on_moderation"
	ClinicActive       ClinicStatus = "active"
	ClinicBlocked      ClinicStatus = "blocked"
)

var ClinicStatuses = []ClinicStatus{ClinicOnModeration, ClinicActive, ClinicBlocked}

// Clinic is a registered customer account. Order statistics are computed
// from the orders table on read.
type Clinic struct {
	ID                     int64        `db:"id" json:"id"`
	ClinicName             string       `db:"clinic_name" json:"clinic_name"`
	Email                  string       `db:"email" json:"email"`
	Phone                  string       `db:"phone" json:"phone"`
	Region                 string       `db:"region" json:"region"`
	City                   string       `db:"city" json:"city"`
	PasswordHash           string       `db:"password_hash" json:"-"`
	ContactPersonName      string       `db:"contact_person_name" json:"contact_person_name"`
	ContactPersonPosition  *string      `db:"contact_person_position" json:"contact_person_position"`
	INN                    *string      `db:"inn" json:"inn"`
	LegalAddress           *string      `db:"legal_address" json:"legal_address"`
	TermsAccepted          bool         `db:"terms_accepted" json:"terms_accepted"`
	DataProcessingAccepted bool         `db:"data_processing_accepted" json:"data_processing_accepted"`
	ConsentDate            *time.Time   `db:"consent_date" json:"consent_date"`
	AccountStatus          ClinicStatus `db:"account_status" json:"account_status"`
	AdminNotes             *string      `db:"admin_notes" json:"admin_notes"`
	RegistrationDate       time.Time    `db:"registration_date" json:"registration_date"`
	LastLogin              *time.Time   `db:"last_login" json:"last_login"`
	UpdatedAt              time.Time    `db:"updated_at" json:"updated_at"`
	ClinicStats
}

// ClinicStats are aggregates over the clinic's orders
type ClinicStats struct {
	TotalOrdersCount     int                 `db:"total_orders_count" json:"total_orders_count"`
	CompletedVisitsCount int                 `db:"completed_visits_count" json:"completed_visits_count"`
	ActiveOrdersCount    int                 `db:"active_orders_count" json:"active_orders_count"`
	TotalOrdersAmount    decimal.Decimal     `db:"total_orders_amount" json:"total_orders_amount"`
	AverageServiceRating decimal.NullDecimal `db:"average_service_rating" json:"average_service_rating"`
}

// ClinicSummary is the short form returned after register and moderation
type ClinicSummary struct {
	ID            int64        `db:"id" json:"id"`
	ClinicName    string       `db:"clinic_name" json:"clinic_name"`
	Email         string       `db:"email" json:"email,omitempty"`
	AccountStatus ClinicStatus `db:"account_status" json:"account_status"`
}

// ClinicProfile is a clinic's own view of its account. The shadowing field is
// never set, so moderation notes stay out of the JSON.
type ClinicProfile struct {
	*Clinic
	AdminNotes *string `json:"admin_notes,omitempty"`
}

func (c *Clinic) Profile() ClinicProfile {
	return ClinicProfile{Clinic: c}
}

func (c *Clinic) Summary() ClinicSummary {
	return ClinicSummary{ID: c.ID, ClinicName: c.ClinicName, Email: c.Email, AccountStatus: c.AccountStatus}
}

// NewClinic is the validated input of a registration
type NewClinic struct {
	ClinicName            string
	Email                 string
	Phone                 string
	Region                string
	City                  string
	PasswordHash          string
	ContactPersonName     string
	ContactPersonPosition *string
	INN                   *string
	LegalAddress          *string
	ConsentDate           time.Time
}
