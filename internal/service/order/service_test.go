package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository/mocks"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

func validRequest(t *testing.T) *model.OrderCreateRequest {
	t.Helper()
	visit, err := model.ParseDate("2026-11-20")
	require.NoError(t, err)
	return &model.OrderCreateRequest{
		VisitDate:     visit,
		ContactPerson: " Ольга ",
		ContactPhone:  "+79001234567",
		VisitAddress:  "ул. Пушкина, 10",
		VisitCity:     "Самара",
	}
}

func TestCreateOrderDefaults(t *testing.T) {
	repo := &mocks.OrderRepository{}
	svc := NewService(repo)
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	repo.On("Create", mock.Anything, mock.MatchedBy(func(o *model.NewOrder) bool {
		return o.ClinicID == 8 && o.PatientCount == 1 && o.UrgencyLevel == model.UrgencyNormal &&
			o.ContactPerson == "Ольга" && o.VisitTime == nil
	}), fixed).Return(&model.Order{ID: 100, ClinicID: 8, Status: model.OrderNew, UrgencyLevel: model.UrgencyNormal}, nil)

	order, err := svc.CreateOrder(context.Background(), 8, validRequest(t))
	require.NoError(t, err)
	assert.Equal(t, model.OrderNew, order.Status)
	repo.AssertExpectations(t)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := NewService(&mocks.OrderRepository{})

	noDate := validRequest(t)
	noDate.VisitDate = model.Date{}
	_, err := svc.CreateOrder(context.Background(), 1, noDate)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	badTime := validRequest(t)
	at := "25:99"
	badTime.VisitTime = &at
	_, err = svc.CreateOrder(context.Background(), 1, badTime)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	negative := validRequest(t)
	negative.EstimatedCost = decimal.NewNullDecimal(decimal.NewFromInt(-5))
	_, err = svc.CreateOrder(context.Background(), 1, negative)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	huge := validRequest(t)
	huge.EstimatedCost = decimal.NewNullDecimal(decimal.RequireFromString("1e15"))
	_, err = svc.CreateOrder(context.Background(), 1, huge)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateOrderNormalizesVisitTime(t *testing.T) {
	o, err := newOrder(1, func() *model.OrderCreateRequest {
		r := validRequest(t)
		at := "9:05"
		r.VisitTime = &at
		return r
	}())
	require.NoError(t, err)
	require.NotNil(t, o.VisitTime)
	assert.Equal(t, "09:05", *o.VisitTime)
}

func TestCreateOrderForbiddenPassesThrough(t *testing.T) {
	repo := &mocks.OrderRepository{}
	svc := NewService(repo)
	repo.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.Forbidden("clinic account is not active"))

	_, err := svc.CreateOrder(context.Background(), 1, validRequest(t))
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestGetClinicOrderHidesForeignOrders(t *testing.T) {
	repo := &mocks.OrderRepository{}
	svc := NewService(repo)

	foreign := &model.OrderDetail{}
	foreign.ID, foreign.ClinicID = 5, 2
	repo.On("Get", mock.Anything, int64(5)).Return(foreign, nil)

	_, err := svc.GetClinicOrder(context.Background(), 1, 5)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	own, err := svc.GetClinicOrder(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), own.ID)
}

func TestListClinicOrdersIsScoped(t *testing.T) {
	repo := &mocks.OrderRepository{}
	svc := NewService(repo)

	repo.On("List", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		_, overridden := p.Filters["clinic_id"]
		return !overridden && len(p.Scope) == 1 &&
			p.Scope[0] == query.Cond{Column: "o.clinic_id", Value: int64(3)}
	})).Return(&model.Page[model.OrderView]{}, nil)

	_, err := svc.ListClinicOrders(context.Background(), 3, query.Params{
		Filters: map[string]string{"clinic_id": "1", "status": "new"},
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateOrderPassesActor(t *testing.T) {
	repo := &mocks.OrderRepository{}
	svc := NewService(repo)
	patch := query.Patch{"doctor_id": json.RawMessage(`12`)}

	repo.On("Patch", mock.Anything, int64(9), patch, mock.MatchedBy(func(env query.Env) bool {
		return env.ActorID == 4
	})).Return(&model.OrderRef{ID: 9, Status: model.OrderPending}, nil)

	ref, err := svc.UpdateOrder(context.Background(), 9, patch, 4)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, ref.Status)

	repo.On("Patch", mock.Anything, int64(10), mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNoFieldsToUpdate)
	_, err = svc.UpdateOrder(context.Background(), 10, query.Patch{"nope": json.RawMessage(`1`)}, 4)
	assert.ErrorIs(t, err, apperrors.ErrNoFieldsToUpdate)
}

func TestAdminOrderReads(t *testing.T) {
	repo := &mocks.OrderRepository{}
	svc := NewService(repo)

	page := &model.Page[model.OrderView]{Items: []model.OrderView{{Order: model.Order{ID: 5}}}, Total: 1, Limit: 50}
	repo.On("List", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		return p.Filters["status"] == "new" && len(p.Scope) == 0
	})).Return(page, nil)
	repo.On("Get", mock.Anything, int64(5)).
		Return(&model.OrderDetail{OrderView: model.OrderView{Order: model.Order{ID: 5}}}, nil)
	repo.On("Get", mock.Anything, int64(6)).Return(nil, apperrors.NotFound("order", nil))

	got, err := svc.ListOrders(context.Background(), query.Params{Filters: map[string]string{"status": "new"}})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)

	detail, err := svc.GetOrder(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), detail.ID)

	_, err = svc.GetOrder(context.Background(), 6)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
