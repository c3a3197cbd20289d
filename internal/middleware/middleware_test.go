package middleware

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]*auth.Claims

func (v stubVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	if token == "expired" {
		return nil, apperrors.Unauthenticated("token expired", nil)
	}
	return nil, apperrors.Unauthenticated("invalid token", nil)
}

type stubClinics map[int64]*model.Clinic

func (s stubClinics) GetClinic(_ context.Context, id int64) (*model.Clinic, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return nil, apperrors.NotFound("clinic", nil)
}

func claimsFor(id int64, role string) *auth.Claims {
	c := &auth.Claims{Role: role}
	c.Subject = strconv.FormatInt(id, 10)
	return c
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func newAuthRouter() *gin.Engine {
	verifier := stubVerifier{
		"admin-token":   claimsFor(1, auth.RoleAdmin),
		"clinic-token":  claimsFor(2, auth.RoleClinic),
		"blocked-token": claimsFor(3, auth.RoleClinic),
	}
	clinics := stubClinics{
		2: {ID: 2, AccountStatus: model.ClinicActive},
		3: {ID: 3, AccountStatus: model.ClinicBlocked},
	}
	am := NewAuthMiddleware(verifier, clinics, "X-Auth-Token")

	r := gin.New()
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }
	r.GET("/admin", am.Authenticate(), am.RequireRole(auth.RoleAdmin), ok)
	r.GET("/clinic", am.Authenticate(), am.RequireRole(auth.RoleClinic), am.RequireClinicNotBlocked(), ok)
	return r
}

func TestAuthenticate(t *testing.T) {
	r := newAuthRouter()

	cases := []struct {
		name    string
		path    string
		header  string
		value   string
		status  int
		message string
	}{
		{"missing", "/admin", "", "", http.StatusUnauthorized, "authentication token is required"},
		{"invalid", "/admin", "X-Auth-Token", "nope", http.StatusUnauthorized, "invalid token"},
		{"expired", "/admin", "X-Auth-Token", "expired", http.StatusUnauthorized, "token expired"},
		{"admin ok", "/admin", "X-Auth-Token", "admin-token", http.StatusOK, ""},
		{"header case-insensitive", "/admin", "x-auth-token", "Bearer admin-token", http.StatusOK, ""},
		{"authorization fallback", "/admin", "Authorization", "bearer admin-token", http.StatusOK, ""},
		{"wrong role", "/admin", "X-Auth-Token", "clinic-token", http.StatusForbidden, "access denied"},
		{"clinic ok", "/clinic", "X-Auth-Token", "clinic-token", http.StatusOK, ""},
		{"admin on clinic route", "/clinic", "X-Auth-Token", "admin-token", http.StatusForbidden, "access denied"},
		{"blocked clinic", "/clinic", "X-Auth-Token", "blocked-token", http.StatusForbidden, "clinic account is blocked"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.message != "" {
				assert.Equal(t, tc.message, errorOf(t, w))
			}
		})
	}
}

func TestCORSPreflightAndHeaders(t *testing.T) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(CORS(DefaultCORSConfig()))
	r.NoMethod(MethodNotAllowed())
	r.GET("/things", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	preflight := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		req.Header.Set("Origin", "https://panel.medstaff.ru")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for _, path := range []string{"/things", "/unknown"} {
		w := preflight(path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Auth-Token")
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	}

	req := httptest.NewRequest(http.MethodGet, "/things", nil)
	req.Header.Set("Origin", "https://panel.medstaff.ru")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-Id", w.Header().Get("Access-Control-Expose-Headers"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/things", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "method not supported", errorOf(t, w))
}

func TestRecoveryReturnsGenericError(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("db password is hunter2") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", errorOf(t, w))
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "bad id\r\nX-Injected: 1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	rid := w.Header().Get(HeaderXRequestID)
	assert.NotContains(t, rid, " ")
	assert.Len(t, rid, 36)
}

func TestRateLimitIsPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 1})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2"))
}

func TestTimeoutAnswersWhenHandlerStaysSilent(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "request timed out", errorOf(t, w))
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(16))
	r.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSizeLimitChunkedBody(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(16))
	r.POST("/", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			httputil.RespondWithError(c, validator.Translate(err))
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"`+strings.Repeat("x", 100)+`"}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request body exceeds 16 bytes", errorOf(t, w))
}

func TestLoginThrottle(t *testing.T) {
	m := metrics.NewNop()
	store := NewMemoryAttemptStore(time.Minute)
	r := gin.New()
	r.POST("/login", LoginThrottle("admin", store, ThrottleConfig{MaxAttempts: 2, Window: time.Minute}, m),
		func(c *gin.Context) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			require.NoError(t, c.ShouldBindJSON(&req))
			if req.Password != "right" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

	login := func(email, password string) int {
		body := `{"email":"` + email + `","password":"` + password + `"}`
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body)))
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("a@x.ru", "wrong"))
	assert.Equal(t, http.StatusOK, login("a@x.ru", "right"), "success below the limit resets")
	assert.Equal(t, http.StatusUnauthorized, login("a@x.ru", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, login("A@X.ru", "wrong"))
	assert.Equal(t, http.StatusTooManyRequests, login("a@x.ru", "right"))
	assert.Equal(t, http.StatusOK, login("b@x.ru", "right"), "other emails are unaffected")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginThrottled))
}

func TestMemoryAttemptStoreWindow(t *testing.T) {
	store := NewMemoryAttemptStore(50 * time.Millisecond)
	ctx := context.Background()

	n, err := store.Hit(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = store.Hit(ctx, "k", 50*time.Millisecond)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Release(ctx, "k"))
	n, _ = store.Hit(ctx, "k", 50*time.Millisecond)
	assert.Equal(t, 2, n)

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, store.Release(ctx, "k"), "release after expiry is a no-op")
	n, err = store.Hit(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoginThrottleConcurrentBurst(t *testing.T) {
	m := metrics.NewNop()
	store := NewMemoryAttemptStore(time.Minute)
	release := make(chan struct{})
	r := gin.New()
	r.POST("/login", LoginThrottle("clinic", store, ThrottleConfig{MaxAttempts: 3, Window: time.Minute}, m),
		func(c *gin.Context) {
			<-release
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		})

	const burst = 10
	codes := make(chan int, burst)
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login",
				strings.NewReader(`{"email":"c@x.ru","password":"guess"}`)))
			codes <- w.Code
		}()
	}
	// let the rejected ones finish before the admitted ones answer
	require.Eventually(t, func() bool { return len(codes) == burst-3 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, 3, counts[http.StatusUnauthorized])
	assert.Equal(t, burst-3, counts[http.StatusTooManyRequests])
	assert.Equal(t, float64(burst-3), testutil.ToFloat64(m.LoginThrottled))
}

func TestLoginThrottleReturnsSlotOnBadRequest(t *testing.T) {
	store := NewMemoryAttemptStore(time.Minute)
	r := gin.New()
	r.POST("/login", LoginThrottle("admin", store, ThrottleConfig{MaxAttempts: 1, Window: time.Minute}, nil),
		func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@x.ru"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewNop()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/orders/:id", "200")))
}

func TestCompress(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig()), Compress(DefaultCompressConfig()))
	r.GET("/doctors", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true, "doctors": []string{}}) })

	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"doctors":[]}`, string(body))

	req = httptest.NewRequest(http.MethodOptions, "/doctors", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Zero(t, w.Body.Len())
}
