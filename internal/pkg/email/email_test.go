package email

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	sent []*gomail.Message
	err  error
}

func (r *recordingSender) DialAndSend(m ...*gomail.Message) error {
	r.sent = append(r.sent, m...)
	return r.err
}

func newTestService(rec *recordingSender, withCreds bool) *EmailServiceImpl {
	cfg := SMTPConfig{Host: "smtp.test", Port: 587, FromName: "CareBridge", FromEmail: "no-reply@carebridge.test"}
	if withCreds {
		cfg.Username, cfg.Password = "user", "pass"
	}
	return &EmailServiceImpl{config: cfg, dialer: rec, logger: zerolog.Nop()}
}

func TestSendSkipsWithoutCredentials(t *testing.T) {
	rec := &recordingSender{}
	svc := newTestService(rec, false)
	require.NoError(t, svc.SendAppointmentReminder("m@example.com", "Ada", time.Now(), "fertility consult"))
	assert.Empty(t, rec.sent)
}

func TestSendReimbursementDecision(t *testing.T) {
	rec := &recordingSender{}
	svc := newTestService(rec, true)

	require.NoError(t, svc.SendReimbursementDecision("m@example.com", "Ada", 12345, false, "missing receipt"))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, []string{"Your reimbursement request was denied"}, rec.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"m@example.com"}, rec.sent[0].GetHeader("To"))
}

func TestSendPropagatesDialError(t *testing.T) {
	rec := &recordingSender{err: errors.New("connection refused")}
	svc := newTestService(rec, true)
	err := svc.SendAppointmentReminder("m@example.com", "Ada", time.Now(), "consult")
	assert.ErrorContains(t, err, "connection refused")
}
