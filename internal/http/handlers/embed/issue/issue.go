// Package issue реализует HTTP-обработчик выдачи сессии встраиваемого бота.
//
// Handler берёт slug бота из URL, Origin и сведения о посетителе из запроса
// и возвращает конфигурацию бота, сессионный токен и готовые файлы базы знаний.
package issue

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/voicebot-billing/internal/http/response"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
	"github.com/magabrotheeeer/voicebot-billing/internal/services/embed"
)

// Service описывает выдачу сессии.
type Service interface {
	Issue(ctx context.Context, req embed.IssueRequest) (*embed.IssueResult, error)
}

// Handler обрабатывает GET /embed/{botSlug}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Открыть сессию встраиваемого бота
// @Description Проверяет политику доменов бота и возвращает его конфигурацию, сессионный токен и базу знаний.
// @Tags Embed
// @Produce json
// @Param botSlug path string true "Slug бота"
// @Param token query string false "Токен встраивания (не проверяется)"
// @Success 200 {object} embed.IssueResult
// @Failure 403 {object} response.ErrorResponse "Бот неактивен или домен не разрешён"
// @Failure 404 {object} response.ErrorResponse "Бот не найден"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /embed/{botSlug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.embed.issue"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	req := embed.IssueRequest{
		Slug:      chi.URLParam(r, "botSlug"),
		Token:     r.URL.Query().Get("token"),
		Origin:    r.Header.Get("Origin"),
		UserIP:    remoteIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}

	res, err := h.service.Issue(r.Context(), req)
	if err != nil {
		log.Info("embed session refused", slog.String("slug", req.Slug), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, res)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
