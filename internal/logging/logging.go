// Package logging builds the zap logger shared by the server, worker and tools.
package logging

import (
	"go.uber.org/zap"
)

// New returns a development logger for ENV=development and a JSON production
// logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// TokenPrefix shortens a bearer-style token for log output.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
