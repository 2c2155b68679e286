package middleware

import (
	"net/http"
	"strings"

	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// CallerIDHeader carries an opaque caller identity. It is not
// authenticated; it only labels logs and usage records.
const CallerIDHeader = "X-Caller-ID"

const maxCallerLength = 128

// CallerMiddleware copies X-Caller-ID into the request context.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := strings.TrimSpace(r.Header.Get(CallerIDHeader))
		if len(caller) > maxCallerLength {
			caller = caller[:maxCallerLength]
		}
		if caller == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.WithCaller(r.Context(), caller)))
	})
}
