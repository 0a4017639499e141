// Package middleware содержит промежуточные обработчики HTTP: логирование,
// восстановление после паники, идентификацию вызывающего и rate-limiting.
package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// logSlot заполняет Identity: id пользователя появляется во вложенном
// контексте, а строку лога пишет внешний обработчик.
type logSlot struct {
	userID int64
}

type logSlotKey struct{}

// Logger логирует каждый запрос: метод, путь, статус, длительность, user_id.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		slot := &logSlot{}
		r = r.WithContext(context.WithValue(r.Context(), logSlotKey{}, slot))

		next.ServeHTTP(ww, r)

		fields := log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}
		if slot.userID != 0 {
			fields["user_id"] = slot.userID
		}
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			fields["request_id"] = reqID
		}
		log.WithFields(fields).Debug("HTTP-запрос")
	})
}
