package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/SwipeSavdev/camp-card-sub001/internal/handler"
)

// Recovery catches panics and returns a 500 error instead of crashing the server.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				handler.JSON(w, http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
					"code":  "INTERNAL",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
