package middlewarectx

import (
	"net/http"

	"github.com/go-chi/cors"
)

// EmbedCORS разрешает кросс-доменные запросы виджета с любого сайта и возвращает
// Origin запроса обратно. Политика доменов бота проверяется уже в обработчике.
func EmbedCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, _ string) bool { return true },
		AllowedMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:  []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		MaxAge:          600,
	})
}

// FrameAncestors разрешает показ ответа во фрейме на любом сайте.
func FrameAncestors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "frame-ancestors *;")
		next.ServeHTTP(w, r)
	})
}
