package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/audit"
)

type auditKey struct{}

// auditInfo заполняется обработчиком: действие (после authorize) и ресурс
type auditInfo struct {
	action   string
	resource string
}

// auditMiddleware пишет в журнал доступа каждый запрос, прошедший authorize
// Запросы без действия (healthz, metrics) не записываются
func auditMiddleware(trail *audit.Trail, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &auditInfo{}
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), auditKey{}, info)))

			if info.action == "" {
				return
			}

			outcome := audit.OutcomeAllowed
			switch {
			case rw.status == http.StatusForbidden:
				outcome = audit.OutcomeDenied
			case rw.status >= http.StatusBadRequest:
				outcome = audit.OutcomeFailed
			}

			entry := audit.NewEntry(r.Header.Get(headerRole), info.action, outcome).
				WithUser(r.Header.Get(headerUser)).
				WithResource(info.resource).
				WithStatus(rw.status).
				WithRemoteAddr(r.RemoteAddr)
			if err := trail.Record(r.Context(), entry); err != nil {
				logger.Error().Err(err).Str("action", info.action).Msg("audit record failed")
			}
		})
	}
}

func noteAction(r *http.Request, action string) {
	if info, ok := r.Context().Value(auditKey{}).(*auditInfo); ok {
		info.action = action
	}
}

func noteResource(r *http.Request, resource string) {
	if info, ok := r.Context().Value(auditKey{}).(*auditInfo); ok {
		info.resource = resource
	}
}
