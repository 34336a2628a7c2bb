// Package dunning рассылает владельцам ботов письма о неуспешном списании.
package dunning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/magabrotheeeer/voicebot-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/smtp"
	"github.com/magabrotheeeer/voicebot-billing/internal/models"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/billing"
	"github.com/magabrotheeeer/voicebot-billing/internal/storage"
)

const subject = "Не удалось списать оплату за подписку"

// UserStore источник адреса получателя.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier обрабатывает сообщения очереди billing.payment_failed.
type Notifier struct {
	store   UserStore
	mailer  smtp.Mailer
	billing string
	log     *slog.Logger
}

// NewNotifier создает Notifier. frontendURL используется для ссылки на страницу оплаты.
func NewNotifier(store UserStore, mailer smtp.Mailer, frontendURL string, log *slog.Logger) *Notifier {
	return &Notifier{
		store:   store,
		mailer:  mailer,
		billing: strings.TrimRight(frontendURL, "/") + "/dashboard/billing",
		log:     log,
	}
}

// HandleMessage отправляет письмо по сообщению из очереди.
// Нечитаемое сообщение отклоняется, сообщение без адресата подтверждается,
// сбой хранилища или SMTP возвращает его в очередь.
func (n *Notifier) HandleMessage(ctx context.Context, body []byte) error {
	const op = "dunning.HandleMessage"

	var msg billing.PaymentFailedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		n.log.Error("malformed payment_failed message", sl.Err(err))
		return fmt.Errorf("%s: decode: %v: %w", op, err, rabbitmq.ErrReject)
	}
	log := n.log.With(slog.String("event_id", msg.EventID), slog.String("invoice_id", msg.InvoiceID))

	if msg.UserID == "" {
		log.Warn("payment failed for unknown customer, nobody to notify", slog.String("customer_id", msg.CustomerID))
		return nil
	}

	user, err := n.store.GetUserByID(ctx, msg.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn("user from payment_failed message not found", slog.String("user_id", msg.UserID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.Email == "" {
		log.Warn("user has no email", slog.String("user_id", user.ID))
		return nil
	}

	if err := n.send(user.Email, n.body(user)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("payment failed notice sent", slog.String("user_id", user.ID))
	return nil
}

func (n *Notifier) body(user *models.User) string {
	name := user.Name
	if name == "" {
		name = user.Email
	}
	return fmt.Sprintf("Здравствуйте, %s!\n\n"+
		"Нам не удалось списать оплату за вашу подписку. "+
		"Пожалуйста, обновите способ оплаты: %s\n\n"+
		"Пока оплата не пройдет, минуты разговоров не будут пополнены.",
		name, n.billing)
}

func (n *Notifier) send(to, text string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.mailer.From())
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	return n.mailer.Send(m)
}
