package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderNew        OrderStatus = "new"
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRejected   OrderStatus = "rejected"
)

var OrderStatuses = []OrderStatus{
	OrderNew, OrderPending, OrderConfirmed, OrderInProgress,
	OrderCompleted, OrderCancelled, OrderRejected,
}

type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

var Urgencies = []Urgency{UrgencyNormal, UrgencyUrgent, UrgencyEmergency}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPrepaid  PaymentStatus = "prepaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var PaymentStatuses = []PaymentStatus{PaymentUnpaid, PaymentPrepaid, PaymentPaid, PaymentRefunded}

type Order struct {
	ID                  int64               `db:"id" json:"id"`
	ClinicID            int64               `db:"clinic_id" json:"clinic_id"`
	DoctorID            *int64              `db:"doctor_id" json:"doctor_id"`
	VisitDate           Date                `db:"visit_date" json:"visit_date"`
	VisitTime           *string             `db:"visit_time" json:"visit_time"`
	PatientCount        int                 `db:"patient_count" json:"patient_count"`
	ServiceType         *string             `db:"service_type" json:"service_type"`
	UrgencyLevel        Urgency             `db:"urgency_level" json:"urgency_level"`
	Status              OrderStatus         `db:"status" json:"status"`
	ContactPerson       string              `db:"contact_person" json:"contact_person"`
	ContactPhone        string              `db:"contact_phone" json:"contact_phone"`
	ContactEmail        *string             `db:"contact_email" json:"contact_email"`
	VisitAddress        string              `db:"visit_address" json:"visit_address"`
	VisitCity           string              `db:"visit_city" json:"visit_city"`
	VisitRegion         *string             `db:"visit_region" json:"visit_region"`
	SpecialRequirements *string             `db:"special_requirements" json:"special_requirements"`
	EstimatedCost       decimal.NullDecimal `db:"estimated_cost" json:"estimated_cost"`
	ActualCost          decimal.NullDecimal `db:"actual_cost" json:"actual_cost"`
	PaymentStatus       PaymentStatus       `db:"payment_status" json:"payment_status"`
	PrepaymentPaid      bool                `db:"prepayment_paid" json:"prepayment_paid"`
	ClinicComments      *string             `db:"clinic_comments" json:"clinic_comments"`
	AdminNotes          *string             `db:"admin_notes" json:"admin_notes"`
	ClinicRating        *int                `db:"clinic_rating" json:"clinic_rating"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updated_at"`
	ConfirmedAt         *time.Time          `db:"confirmed_at" json:"confirmed_at"`
	CompletedAt         *time.Time          `db:"completed_at" json:"completed_at"`
	CancelledAt         *time.Time          `db:"cancelled_at" json:"cancelled_at"`
	AssignedByAdminID   *int64              `db:"assigned_by_admin_id" json:"assigned_by_admin_id"`
}

// OrderView is an order with the display fields of its clinic and doctor
type OrderView struct {
	Order
	ClinicName      *string `db:"clinic_name" json:"clinic_name"`
	ClinicEmail     *string `db:"clinic_email" json:"clinic_email"`
	ClinicPhone     *string `db:"clinic_phone" json:"clinic_phone"`
	DoctorName      *string `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty *string `db:"doctor_specialty" json:"doctor_specialty"`
}

// OrderDetail adds the fields shown on the order card
type OrderDetail struct {
	OrderView
	ClinicRegion    *string `db:"clinic_region" json:"clinic_region"`
	ClinicCity      *string `db:"clinic_city" json:"clinic_city"`
	ExperienceYears *int    `db:"experience_years" json:"experience_years"`
	DoctorPhoto     *string `db:"doctor_photo" json:"doctor_photo"`
}

// OrderRef is returned by update
type OrderRef struct {
	ID     int64       `db:"id" json:"id"`
	Status OrderStatus `db:"status" json:"status"`
}

// NewOrder is the validated input of a clinic's order
type NewOrder struct {
	ClinicID            int64
	DoctorID            *int64
	VisitDate           Date
	VisitTime           *string
	PatientCount        int
	ServiceType         *string
	UrgencyLevel        Urgency
	ContactPerson       string
	ContactPhone        string
	ContactEmail        *string
	VisitAddress        string
	VisitCity           string
	VisitRegion         *string
	SpecialRequirements *string
	ClinicComments      *string
	EstimatedCost       decimal.NullDecimal
}

// Clinic views of an order. Their shadowing fields are never set, so the
// admin-only columns stay out of the JSON a clinic receives.

type ClinicOrder struct {
	*Order
	AdminNotes        *string `json:"admin_notes,omitempty"`
	AssignedByAdminID *int64  `json:"assigned_by_admin_id,omitempty"`
}

type ClinicOrderView struct {
	OrderView
	AdminNotes        *string `json:"admin_notes,omitempty"`
	AssignedByAdminID *int64  `json:"assigned_by_admin_id,omitempty"`
}

type ClinicOrderDetail struct {
	*OrderDetail
	AdminNotes        *string `json:"admin_notes,omitempty"`
	AssignedByAdminID *int64  `json:"assigned_by_admin_id,omitempty"`
}

func (o *Order) ForClinic() ClinicOrder {
	return ClinicOrder{Order: o}
}

func (v OrderView) ForClinic() ClinicOrderView {
	return ClinicOrderView{OrderView: v}
}

func (d *OrderDetail) ForClinic() ClinicOrderDetail {
	return ClinicOrderDetail{OrderDetail: d}
}
