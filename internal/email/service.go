package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/medstaff-api/internal/config"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
)

// Template names, used as metric labels
const (
	TemplateRegistration = "registration"
	TemplateClinicStatus = "clinic_status"
)

type Service interface {
	SendRegistrationReceived(ctx context.Context, to, clinicName string) error
	SendClinicStatusChanged(ctx context.Context, to, clinicName string, status model.ClinicStatus) error
}

type smtpService struct {
	from    string
	send    func(m ...*gomail.Message) error
	metrics *metrics.Metrics
}

// NewService returns an SMTP-backed sender, or a no-op one when SMTP is not configured
func NewService(cfg config.SMTPConfig, m *metrics.Metrics) Service {
	if !cfg.Enabled() {
		log.Info().Msg("smtp is not configured, e-mail notifications are disabled")
		return noopService{}
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &smtpService{from: cfg.From, send: dialer.DialAndSend, metrics: m}
}

func (s *smtpService) SendRegistrationReceived(ctx context.Context, to, clinicName string) error {
	body := fmt.Sprintf(
		"Здравствуйте!\n\nЗаявка клиники «%s» получена и находится на модерации. "+
			"Мы сообщим вам, когда аккаунт будет активирован.\n", clinicName)
	return s.deliver(ctx, TemplateRegistration, to, "Заявка на регистрацию получена", body)
}

func (s *smtpService) SendClinicStatusChanged(ctx context.Context, to, clinicName string, status model.ClinicStatus) error {
	var subject, body string
	switch status {
	case model.ClinicActive:
		subject = "Аккаунт клиники активирован"
		body = fmt.Sprintf("Здравствуйте!\n\nАккаунт клиники «%s» активирован. Теперь вы можете создавать заявки на выезд врачей.\n", clinicName)
	case model.ClinicBlocked:
		subject = "Аккаунт клиники заблокирован"
		body = fmt.Sprintf("Здравствуйте!\n\nАккаунт клиники «%s» заблокирован. Для уточнения причин свяжитесь с администрацией.\n", clinicName)
	default:
		return fmt.Errorf("no notification for clinic status %q", status)
	}
	return s.deliver(ctx, TemplateClinicStatus, to, subject, body)
}

func (s *smtpService) deliver(ctx context.Context, template, to, subject, body string) (err error) {
	defer func() {
		outcome := "sent"
		if err != nil {
			outcome = "failed"
		}
		if s.metrics != nil {
			s.metrics.EmailsSent.WithLabelValues(template, outcome).Inc()
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	return nil
}

type noopService struct{}

func (noopService) SendRegistrationReceived(context.Context, string, string) error { return nil }

func (noopService) SendClinicStatusChanged(context.Context, string, string, model.ClinicStatus) error {
	return nil
}

