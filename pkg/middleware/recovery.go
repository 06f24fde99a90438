package middleware

import (
	"errors"
	"fmt"
	"medbook/pkg/logger"
	"net/http"
	"runtime/debug"
)

// Recovery turns a handler panic into a 500 with the request id attached, so
// a failed booking can be traced from the client's error back to the log.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverRequest(log, w, r)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverRequest(log *logger.Logger, w http.ResponseWriter, r *http.Request) {
	p := recover()
	if p == nil {
		return
	}
	// net/http uses this sentinel to drop the connection on purpose.
	if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		panic(p)
	}

	requestID := RequestIDFromContext(r.Context())
	log.Error("Handler panicked",
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"panic", fmt.Sprint(p),
		"stack", string(debug.Stack()),
	)

	if requestID != "" {
		w.Header().Set(RequestIDHeader, requestID)
	}
	writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}
