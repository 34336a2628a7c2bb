package smtp

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/magabrotheeeer/voicebot-billing/internal/config"
)

// Transport открывает соединение на каждое письмо.
// STARTTLS используется, если сервер его поддерживает, порт 465 означает неявный TLS.
type Transport struct {
	dialer *gomail.Dialer
	from   string
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP) *Transport {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return &Transport{dialer: d, from: cfg.From}
}

// Send отправляет письмо.
func (t *Transport) Send(msg *gomail.Message) error {
	const op = "smtp.Send"
	if err := t.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// From возвращает адрес отправителя.
func (t *Transport) From() string {
	return t.from
}
