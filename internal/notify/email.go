package notify

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

const defaultSMTPPort = 587

// EmailConfig describes the SMTP relay and the single recipient.
type EmailConfig struct {
	Relay            string `yaml:"relay"`
	Port             int    `yaml:"port"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	SenderAddress    string `yaml:"sender_address"`
	RecipientAddress string `yaml:"recipient_address"`
}

// Validate lists every missing field.
func (c EmailConfig) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"relay":             c.Relay,
		"username":          c.Username,
		"password":          c.Password,
		"sender_address":    c.SenderAddress,
		"recipient_address": c.RecipientAddress,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("email: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Email sends messages through an SMTP relay using STARTTLS.
type Email struct {
	cfg    EmailConfig
	client *mail.Client
}

func NewEmail(cfg EmailConfig) (*Email, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	c, err := mail.NewClient(cfg.Relay,
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	return &Email{cfg: cfg, client: c}, nil
}

func (e *Email) Send(ctx context.Context, msg domain.Message) error {
	m, err := e.compose(msg)
	if err != nil {
		return err
	}
	if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func (e *Email) compose(msg domain.Message) (*mail.Msg, error) {
	if err := CheckTransmissible(msg); err != nil {
		return nil, err
	}
	m := mail.NewMsg()
	if err := m.From(e.cfg.SenderAddress); err != nil {
		return nil, fmt.Errorf("email: sender: %w", err)
	}
	if err := m.To(e.cfg.RecipientAddress); err != nil {
		return nil, fmt.Errorf("email: recipient: %w", err)
	}
	m.Subject(msg.Subject())
	m.SetBodyString(mail.TypeTextPlain, emailBody(msg))
	return m, nil
}

func emailBody(msg domain.Message) string {
	return strings.ToLower(msg.String())
}

