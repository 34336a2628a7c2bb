// Package smtp отправляет письма через SMTP сервер.
package smtp

import "gopkg.in/gomail.v2"

// Mailer интерфейс для отправки готового письма.
type Mailer interface {
	Send(msg *gomail.Message) error
	From() string
}
