package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/medstaff-api/internal/config"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
)

func newCapture(err error) (*smtpService, *[]*gomail.Message) {
	var sent []*gomail.Message
	svc := &smtpService{
		from:    "noreply@medstaff.test",
		metrics: metrics.NewNop(),
		send: func(m ...*gomail.Message) error {
			sent = append(sent, m...)
			return err
		},
	}
	return svc, &sent
}

func TestNewServiceDisabledWithoutHost(t *testing.T) {
	svc := NewService(config.SMTPConfig{}, metrics.NewNop())
	assert.IsType(t, noopService{}, svc)
	assert.NoError(t, svc.SendClinicStatusChanged(context.Background(), "a@b.c", "x", model.ClinicActive))
}

func TestSendClinicStatusChanged(t *testing.T) {
	svc, sent := newCapture(nil)

	err := svc.SendClinicStatusChanged(context.Background(), "clinic@test.ru", "Здоровье", model.ClinicActive)
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, []string{"clinic@test.ru"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Аккаунт клиники активирован"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.EmailsSent.WithLabelValues(TemplateClinicStatus, "sent")))
}

func TestSendClinicStatusChangedIgnoresModeration(t *testing.T) {
	svc, sent := newCapture(nil)

	err := svc.SendClinicStatusChanged(context.Background(), "clinic@test.ru", "x", model.ClinicOnModeration)
	assert.Error(t, err)
	assert.Empty(t, *sent)
}

func TestSendFailureIsCounted(t *testing.T) {
	svc, _ := newCapture(errors.New("connection refused"))

	err := svc.SendRegistrationReceived(context.Background(), "clinic@test.ru", "x")
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.EmailsSent.WithLabelValues(TemplateRegistration, "failed")))
}

func TestSendHonoursCancelledContext(t *testing.T) {
	svc, sent := newCapture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SendRegistrationReceived(ctx, "a@b.c", "Клиника")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *sent)
}
