package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/wolfman30/vetchat/internal/http/response"
	"github.com/wolfman30/vetchat/pkg/logging"
)

const maskedError = "An unexpected error occurred"

// Recoverer turns a panic into a JSON 500. The panic text is only returned
// outside production.
func Recoverer(logger *logging.Logger, production bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("unhandled panic", "panic", fmt.Sprint(rec), "path", r.URL.Path, "stack", string(debug.Stack()))
				msg := maskedError
				if !production {
					msg = fmt.Sprint(rec)
				}
				response.Error(w, http.StatusInternalServerError, msg)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
