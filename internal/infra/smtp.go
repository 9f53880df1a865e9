package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/DanielPaucar/control-coliseo/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends QR codes and caja reports through the configured SMTP relay.
// Every send goes through a circuit breaker so a dead relay fails fast.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	cb       *CircuitBreaker
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       NewCircuitBreaker(DefaultCBConfig()),
	}
}

// Breaker exposes the SMTP breaker state for /health.
func (m *Mailer) Breaker() CBState { return m.cb.State() }

// SendQR mails a QR PNG as an attachment.
func (m *Mailer) SendQR(to, nombre, codigo string, png []byte) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = "Tu código de ingreso"
	saludo := "Hola"
	if nombre != "" {
		saludo = "Hola " + nombre
	}
	e.Text = []byte(fmt.Sprintf("%s,\n\nAdjuntamos tu código QR de ingreso (%s).\nPresentalo en la puerta del evento.\n", saludo, codigo))
	if _, err := e.Attach(bytes.NewReader(png), codigo+".png", "image/png"); err != nil {
		return fmt.Errorf("mailer: attach QR: %w", err)
	}
	return m.send(e)
}

// SendReporte mails a caja closure report PDF to the given recipients.
func (m *Mailer) SendReporte(to []string, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)
	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}
	return m.send(e)
}

func (m *Mailer) send(e *email.Email) error {
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.cb.Execute(func() error { return e.Send(m.addr, auth) })
}
