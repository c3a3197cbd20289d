package repository

import (
	"context"
	"time"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

// All repository interfaces in one file.
// Lookups of a missing row return an errors.KindNotFound AppError;
// unique violations return errors.KindConflict.
type (
	AdminRepository interface {
		Create(ctx context.Context, admin *model.Admin) error
		GetByEmail(ctx context.Context, email string) (*model.Admin, error)
		TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	}

	ClinicRepository interface {
		// Register inserts the clinic with status on_moderation. A taken
		// email yields a Conflict without a separate existence check.
		Register(ctx context.Context, clinic *model.NewClinic) (*model.Clinic, error)
		Get(ctx context.Context, id int64) (*model.Clinic, error)
		GetByEmail(ctx context.Context, email string) (*model.Clinic, error)
		List(ctx context.Context, params query.Params) (*model.Page[model.Clinic], error)
		Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (*model.ClinicSummary, error)
		TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.NewDoctor, now time.Time) (*model.DoctorRef, error)
		Get(ctx context.Context, id int64) (*model.Doctor, error)
		List(ctx context.Context, params query.Params) (*model.Page[model.DoctorSummary], error)
		Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (*model.DoctorRef, error)
		// Delete removes the doctor and returns the deleted name
		Delete(ctx context.Context, id int64) (string, error)
	}

	OrderRepository interface {
		// Create inserts an order after checking, in the same transaction,
		// that the clinic is active and the doctor (if any) is active.
		Create(ctx context.Context, order *model.NewOrder, now time.Time) (*model.Order, error)
		Get(ctx context.Context, id int64) (*model.OrderDetail, error)
		List(ctx context.Context, params query.Params) (*model.Page[model.OrderView], error)
		Patch(ctx context.Context, id int64, patch query.Patch, env query.Env) (*model.OrderRef, error)
	}
)
