// Package webhook реализует приём вебхуков Stripe.
//
// Подпись проверяется над исходными байтами тела до любого разбора.
// Событие с неверной подписью или нечитаемым телом получает 400,
// сбой хранилища при сверке получает 500, чтобы Stripe повторил доставку.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/billing"
)

const maxBodyBytes = 65536

// Decoder проверяет подпись и разбирает событие.
type Decoder interface {
	Decode(payload []byte, signatureHeader string) (billing.Event, error)
}

// Reconciler применяет событие.
type Reconciler interface {
	Handle(ctx context.Context, ev billing.Event) error
}

// Handler обрабатывает POST /webhooks/stripe.
type Handler struct {
	log        *slog.Logger
	decoder    Decoder
	reconciler Reconciler
}

// New создаёт Handler.
func New(log *slog.Logger, decoder Decoder, reconciler Reconciler) *Handler {
	return &Handler{
		log:        log,
		decoder:    decoder,
		reconciler: reconciler,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Принимает события подписок и счетов Stripe. Требует заголовок Stripe-Signature.
// @Tags Billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} map[string]bool "received: true"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Invalid request"))
		return
	}

	ev, err := h.decoder.Decode(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn("webhook rejected", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	if err := h.reconciler.Handle(r.Context(), ev); err != nil {
		log.Error("failed to reconcile event", slog.String("event_id", ev.ID), slog.String("type", ev.Type), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"received": true})
}
