package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"ticket-storefront/internal/utils"
)

// APIKeyHeader carries the key of internal API calls
const APIKeyHeader = "X-API-KEY"

// RequireAPIKey rejects requests without the configured API key. With an
// empty key every request is rejected.
func RequireAPIKey(key string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if key == "" || provided == "" || !utils.ConstantTimeEqual(key, provided) {
				logger.Warn("Unauthorized API request",
					zap.String("path", r.URL.Path),
					zap.String("ip", getClientIP(r)),
					zap.Bool("key_configured", key != ""))
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
