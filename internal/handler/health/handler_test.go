package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func pingReturning(err error) Pinger {
	return pingFunc(func(context.Context) error { return err })
}

func TestHealthChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	down := errors.New("connection refused")
	cases := []struct {
		name   string
		path   string
		db     error
		redis  error
		status int
		state  string
	}{
		{"live ignores db", "/health/live", down, nil, http.StatusOK, "UP"},
		{"ready", "/health/ready", nil, nil, http.StatusOK, "UP"},
		{"not ready", "/health/ready", down, nil, http.StatusServiceUnavailable, "DOWN"},
		{"redis down degrades", "/health/ready", nil, down, http.StatusOK, "DEGRADED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			NewHandler(pingReturning(tc.db), WithOptionalCheck("redis", pingReturning(tc.redis))).
				RegisterRoutes(&r.RouterGroup)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")

			var body struct {
				Status string `json:"status"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.state, body.Status)
		})
	}
}
