package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	authhandler "github.com/jwalitptl/medstaff-api/internal/handler/auth"
	clinichandler "github.com/jwalitptl/medstaff-api/internal/handler/clinic"
	doctorhandler "github.com/jwalitptl/medstaff-api/internal/handler/doctor"
	"github.com/jwalitptl/medstaff-api/internal/handler/health"
	orderhandler "github.com/jwalitptl/medstaff-api/internal/handler/order"
	"github.com/jwalitptl/medstaff-api/internal/middleware"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/internal/repository/mocks"
	"github.com/jwalitptl/medstaff-api/internal/router"
	authservice "github.com/jwalitptl/medstaff-api/internal/service/auth"
	clinicservice "github.com/jwalitptl/medstaff-api/internal/service/clinic"
	doctorservice "github.com/jwalitptl/medstaff-api/internal/service/doctor"
	orderservice "github.com/jwalitptl/medstaff-api/internal/service/order"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/query"
	"github.com/jwalitptl/medstaff-api/pkg/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testAPI struct {
	engine  *gin.Engine
	admins  *mocks.AdminRepository
	clinics *mocks.ClinicRepository
	doctors *mocks.DoctorRepository
	orders  *mocks.OrderRepository
	mailer  *mocks.Mailer
	tokens  auth.JWTService
	hasher  security.PasswordHasher
}

// TestResponse is a decoded response body
type TestResponse struct {
	Code   int
	Header http.Header
	Data   map[string]interface{}
}

func (r TestResponse) IsSuccess() bool {
	ok, _ := r.Data["success"].(bool)
	return ok
}

func (r TestResponse) Error() string {
	msg, _ := r.Data["error"].(string)
	return msg
}

func (r TestResponse) Object(key string) map[string]interface{} {
	v, _ := r.Data[key].(map[string]interface{})
	return v
}

type pingerFunc func() error

func (f pingerFunc) PingContext(context.Context) error { return f() }

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewJWTService(testSecret, "medstaff-test")
	require.NoError(t, err)

	api := &testAPI{
		admins:  &mocks.AdminRepository{},
		clinics: &mocks.ClinicRepository{},
		doctors: &mocks.DoctorRepository{},
		orders:  &mocks.OrderRepository{},
		mailer:  &mocks.Mailer{},
		tokens:  tokens,
		hasher:  security.NewBcryptHasher(bcrypt.MinCost),
	}

	m := metrics.NewNop()
	authSvc := authservice.NewService(api.admins, api.clinics, api.hasher, tokens, api.mailer, m,
		authservice.Config{AdminTTL: time.Hour, ClinicTTL: time.Hour})
	clinicSvc := clinicservice.NewService(api.clinics, api.mailer)

	store := middleware.NewMemoryAttemptStore(time.Minute)
	throttle := middleware.ThrottleConfig{MaxAttempts: 3, Window: time.Minute}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc, clinicSvc, "X-Auth-Token"),
		router.Handlers{
			Auth: authhandler.NewHandler(authSvc,
				middleware.LoginThrottle(auth.RoleAdmin, store, throttle, m),
				middleware.LoginThrottle(auth.RoleClinic, store, throttle, m)),
			Clinic: clinichandler.NewHandler(clinicSvc),
			Doctor: doctorhandler.NewHandler(doctorservice.NewService(api.doctors)),
			Order:  orderhandler.NewHandler(orderservice.NewService(api.orders)),
			Health: health.NewHandler(api.ping()),
		},
		m,
		router.RouterConfig{
			RateLimitEnabled: true,
			RateLimit:        rate.Inf,
			CORSConfig:       middleware.DefaultCORSConfig(),
			RequestTimeout:   5 * time.Second,
			MaxBodyBytes:     1 << 20,
			Compress:         true,
		},
	)
	r.Setup()
	api.engine = r.Engine()
	return api
}

func (api *testAPI) ping() health.Pinger {
	return pingerFunc(func() error { return nil })
}

func (api *testAPI) token(t *testing.T, id int64, role string) string {
	t.Helper()
	token, _, err := api.tokens.Issue(auth.Identity{ID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (api *testAPI) makeRequest(t *testing.T, method, path string, body interface{}, token string) TestResponse {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	resp := TestResponse{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp.Data)
	}
	return resp
}

func (api *testAPI) activeClinic(id int64) {
	notes := "проверить ИНН"
	api.clinics.On("Get", mock.Anything, id).
		Return(&model.Clinic{ID: id, ClinicName: "Вита", Email: "vita@clinic.ru", AccountStatus: model.ClinicActive, AdminNotes: &notes}, nil)
}

func TestAdminLoginAndVerify(t *testing.T) {
	api := newTestAPI(t)
	hash, err := api.hasher.Hash("correct-horse")
	require.NoError(t, err)
	api.admins.On("GetByEmail", mock.Anything, "boss@medstaff.ru").
		Return(&model.Admin{ID: 3, Email: "boss@medstaff.ru", FullName: "Boss", Role: "admin", IsActive: true, PasswordHash: hash}, nil)
	api.admins.On("TouchLastLogin", mock.Anything, int64(3), mock.Anything).Return(nil)

	login := api.makeRequest(t, http.MethodPost, "/api/v1/auth/admin/login",
		map[string]string{"email": "boss@medstaff.ru", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusOK, login.Code)
	assert.True(t, login.IsSuccess())
	assert.Equal(t, "admin", login.Data["user_type"])
	assert.NotEmpty(t, login.Data["expires_at"])
	assert.Equal(t, "boss@medstaff.ru", login.Object("admin")["email"])
	assert.Equal(t, "*", login.Header.Get("Access-Control-Allow-Origin"))

	token, _ := login.Data["token"].(string)
	verify := api.makeRequest(t, http.MethodPost, "/api/v1/auth/admin/verify", map[string]string{"token": token}, "")
	require.Equal(t, http.StatusOK, verify.Code)
	assert.Equal(t, true, verify.Data["valid"])
	assert.Equal(t, "3", verify.Object("admin")["sub"])

	bad := api.makeRequest(t, http.MethodPost, "/api/v1/auth/admin/verify", map[string]string{"token": "garbage"}, "")
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Equal(t, "invalid token", bad.Error())

	clinicToken := api.makeRequest(t, http.MethodPost, "/api/v1/auth/admin/verify",
		map[string]string{"token": api.token(t, 5, auth.RoleClinic)}, "")
	assert.Equal(t, http.StatusUnauthorized, clinicToken.Code)
}

func TestAdminLoginIsThrottled(t *testing.T) {
	api := newTestAPI(t)
	api.admins.On("GetByEmail", mock.Anything, "who@medstaff.ru").Return(nil, apperrors.NotFound("admin", nil))

	body := map[string]string{"email": "who@medstaff.ru", "password": "guess-guess"}
	for i := 0; i < 3; i++ {
		resp := api.makeRequest(t, http.MethodPost, "/api/v1/auth/admin/login", body, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "invalid email or password", resp.Error())
	}
	resp := api.makeRequest(t, http.MethodPost, "/api/v1/auth/admin/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestClinicRegistration(t *testing.T) {
	api := newTestAPI(t)
	api.clinics.On("Register", mock.Anything, mock.MatchedBy(func(c *model.NewClinic) bool {
		return c.Email == "new@clinic.ru" && c.PasswordHash != "" && !c.ConsentDate.IsZero()
	})).Return(&model.Clinic{ID: 12, ClinicName: "Новая", Email: "new@clinic.ru", AccountStatus: model.ClinicOnModeration}, nil)
	api.mailer.On("SendRegistrationReceived", mock.Anything, "new@clinic.ru", "Новая").Return(nil)

	body := map[string]interface{}{
		"clinic_name":              "Новая",
		"email":                    "New@Clinic.ru",
		"phone":                    "+7 (900) 123-45-67",
		"region":                   "Москва",
		"city":                     "Москва",
		"password":                 "long-enough",
		"contact_person_name":      "Иванов",
		"terms_accepted":           true,
		"data_processing_accepted": true,
	}
	resp := api.makeRequest(t, http.MethodPost, "/api/v1/auth/clinic/register", body, "")
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "on_moderation", resp.Object("clinic")["account_status"])
	assert.NotEmpty(t, resp.Data["token"])

	body["terms_accepted"] = false
	resp = api.makeRequest(t, http.MethodPost, "/api/v1/auth/clinic/register", body, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	delete(body, "phone")
	body["terms_accepted"] = true
	resp = api.makeRequest(t, http.MethodPost, "/api/v1/auth/clinic/register", body, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Error(), "phone")
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.makeRequest(t, http.MethodGet, "/api/v1/admin/clinics", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.makeRequest(t, http.MethodGet, "/api/v1/admin/clinics", nil, api.token(t, 5, auth.RoleClinic))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "access denied", resp.Error())
}

func TestListClinics(t *testing.T) {
	api := newTestAPI(t)
	api.clinics.On("List", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		return p.Filters["status"] == "active" && p.Search == "vita" && p.Limit == 10
	})).Return(&model.Page[model.Clinic]{
		Items: []model.Clinic{{ID: 1, ClinicName: "Вита", AccountStatus: model.ClinicActive}},
		Total: 1, Limit: 10,
	}, nil)

	resp := api.makeRequest(t, http.MethodGet, "/api/v1/admin/clinics?status=active&search=vita&limit=10", nil, api.token(t, 1, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 1.0, resp.Data["total"])
	assert.Equal(t, 10.0, resp.Data["limit"])
	assert.Equal(t, 0.0, resp.Data["offset"])
	assert.Len(t, resp.Data["clinics"], 1)
}

func TestClinicStatusUpdateNotifies(t *testing.T) {
	api := newTestAPI(t)
	api.clinics.On("Get", mock.Anything, int64(4)).
		Return(&model.Clinic{ID: 4, ClinicName: "Вита", Email: "vita@clinic.ru", AccountStatus: model.ClinicOnModeration}, nil)
	api.clinics.On("Patch", mock.Anything, int64(4), query.Patch{"account_status": json.RawMessage(`"active"`)}, mock.Anything).
		Return(&model.ClinicSummary{ID: 4, ClinicName: "Вита", Email: "vita@clinic.ru", AccountStatus: model.ClinicActive}, nil)
	api.mailer.On("SendClinicStatusChanged", mock.Anything, "vita@clinic.ru", "Вита", model.ClinicActive).Return(nil)

	resp := api.makeRequest(t, http.MethodPut, "/api/v1/admin/clinics/4/status", map[string]string{"status": "active"}, api.token(t, 1, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "active", resp.Object("clinic")["account_status"])
	api.mailer.AssertExpectations(t)
}

func TestPatchRejectsEmptyBody(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, 1, auth.RoleAdmin)

	resp := api.makeRequest(t, http.MethodPatch, "/api/v1/admin/orders/7", map[string]interface{}{}, token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "no fields to update", resp.Error())

	resp = api.makeRequest(t, http.MethodPatch, "/api/v1/admin/orders/7", "[1,2]", token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.makeRequest(t, http.MethodPatch, "/api/v1/admin/orders/abc", map[string]string{"status": "new"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateOrder(t *testing.T) {
	api := newTestAPI(t)
	api.orders.On("Patch", mock.Anything, int64(7), query.Patch{"status": json.RawMessage(`"confirmed"`)},
		mock.MatchedBy(func(env query.Env) bool { return env.ActorID == 2 })).
		Return(&model.OrderRef{ID: 7, Status: model.OrderConfirmed}, nil)

	resp := api.makeRequest(t, http.MethodPut, "/api/v1/admin/orders/7", map[string]string{"status": "confirmed"}, api.token(t, 2, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "confirmed", resp.Object("order")["status"])
	assert.Equal(t, 7.0, resp.Object("order")["id"])
}

func TestDeleteDoctor(t *testing.T) {
	api := newTestAPI(t)
	api.doctors.On("Delete", mock.Anything, int64(5)).Return("Петров П.П.", nil)
	api.doctors.On("Delete", mock.Anything, int64(6)).Return("", apperrors.NotFound("doctor", nil))
	token := api.token(t, 1, auth.RoleAdmin)

	resp := api.makeRequest(t, http.MethodDelete, "/api/v1/admin/doctors/5", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, resp.IsSuccess())
	assert.Contains(t, resp.Data["message"], "Петров П.П.")

	resp = api.makeRequest(t, http.MethodDelete, "/api/v1/admin/doctors/6", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "doctor not found", resp.Error())
}

func TestMethodNotAllowedAndNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.makeRequest(t, http.MethodDelete, "/api/v1/admin/clinics/1", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, "method not supported", resp.Error())
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = api.makeRequest(t, http.MethodGet, "/api/v1/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "route not found", resp.Error())
}

func TestPreflightNeedsNoToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/v1/admin/orders/5", "/api/v1/nowhere"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://panel.medstaff.ru")
		req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
		req.Header.Set("Access-Control-Request-Headers", "X-Auth-Token")
		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	}
}

func TestClinicOrderFlow(t *testing.T) {
	api := newTestAPI(t)
	api.activeClinic(8)
	token := api.token(t, 8, auth.RoleClinic)

	api.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *model.NewOrder) bool {
		return o.ClinicID == 8 && o.PatientCount == 1 && o.UrgencyLevel == model.UrgencyNormal &&
			o.VisitTime != nil && *o.VisitTime == "09:30"
	}), mock.Anything).Return(&model.Order{ID: 31, ClinicID: 8, Status: model.OrderNew, UrgencyLevel: model.UrgencyNormal}, nil)

	create := api.makeRequest(t, http.MethodPost, "/api/v1/clinic/orders", map[string]interface{}{
		"visit_date":     "2026-11-02",
		"visit_time":     "9:30",
		"contact_person": "Иванов",
		"contact_phone":  "+79001234567",
		"visit_address":  "ул. Ленина, 1",
		"visit_city":     "Москва",
	}, token)
	require.Equal(t, http.StatusCreated, create.Code)
	assert.Equal(t, "new", create.Object("order")["status"])

	api.orders.On("List", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		_, leaked := p.Filters["clinic_id"]
		return !leaked && len(p.Scope) == 1 && p.Scope[0].Value == int64(8)
	})).Return(&model.Page[model.OrderView]{Limit: 50}, nil)

	list := api.makeRequest(t, http.MethodGet, "/api/v1/clinic/orders?clinic_id=9", nil, token)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, []interface{}{}, list.Data["orders"])

	other := &model.OrderDetail{}
	other.ID, other.ClinicID = 40, 9
	api.orders.On("Get", mock.Anything, int64(40)).Return(other, nil)
	resp := api.makeRequest(t, http.MethodGet, "/api/v1/clinic/orders/40", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	notes, adminID := "клиент капризный", int64(3)
	own := &model.OrderDetail{}
	own.ID, own.ClinicID, own.Status = 41, 8, model.OrderConfirmed
	own.AdminNotes, own.AssignedByAdminID = &notes, &adminID
	api.orders.On("Get", mock.Anything, int64(41)).Return(own, nil)

	resp = api.makeRequest(t, http.MethodGet, "/api/v1/clinic/orders/41", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	order := resp.Object("order")
	assert.Equal(t, "confirmed", order["status"])
	assert.NotContains(t, order, "admin_notes")
	assert.NotContains(t, order, "assigned_by_admin_id")
}

func TestBlockedClinicIsRejected(t *testing.T) {
	api := newTestAPI(t)
	api.clinics.On("Get", mock.Anything, int64(9)).
		Return(&model.Clinic{ID: 9, AccountStatus: model.ClinicBlocked}, nil)

	resp := api.makeRequest(t, http.MethodGet, "/api/v1/clinic/me", nil, api.token(t, 9, auth.RoleClinic))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "clinic account is blocked", resp.Error())
}

func TestClinicProfileAndCatalog(t *testing.T) {
	api := newTestAPI(t)
	api.activeClinic(8)
	token := api.token(t, 8, auth.RoleClinic)

	me := api.makeRequest(t, http.MethodGet, "/api/v1/clinic/me", nil, token)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "vita@clinic.ru", me.Object("clinic")["email"])
	assert.NotContains(t, me.Object("clinic"), "admin_notes")

	api.doctors.On("List", mock.Anything, mock.MatchedBy(func(p query.Params) bool {
		return len(p.Scope) == 1 && p.Scope[0].Value == "active"
	})).Return(&model.Page[model.DoctorSummary]{Items: []model.DoctorSummary{{ID: 2, FullName: "Петров"}}, Total: 1, Limit: 50}, nil)

	catalog := api.makeRequest(t, http.MethodGet, "/api/v1/clinic/doctors?status=inactive", nil, token)
	require.Equal(t, http.StatusOK, catalog.Code)
	assert.Len(t, catalog.Data["doctors"], 1)
}

func TestUnexpectedErrorsDoNotLeak(t *testing.T) {
	api := newTestAPI(t)
	api.doctors.On("Get", mock.Anything, int64(3)).Return(nil, errors.New(`pq: relation "doctors" does not exist`))

	resp := api.makeRequest(t, http.MethodGet, "/api/v1/admin/doctors/3", nil, api.token(t, 1, auth.RoleAdmin))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal server error", resp.Error())
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)

	resp := api.makeRequest(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderXRequestID))
}
