package services

import (
	"go.uber.org/zap"

	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/models"
	"ticket-storefront/internal/session"
	"ticket-storefront/internal/utils"
)

const checkoutTokenBytes = 32

// CheckoutTokenGuard issues and consumes the single-use token binding a
// rendered checkout page to one accepted submission
type CheckoutTokenGuard struct {
	logger *zap.Logger
}

// NewCheckoutTokenGuard creates a new checkout token guard
func NewCheckoutTokenGuard(logger *zap.Logger) *CheckoutTokenGuard {
	return &CheckoutTokenGuard{logger: logger}
}

// Issue creates a token for the session. It fails when a token is already
// pending unless overwrite is set.
func (g *CheckoutTokenGuard) Issue(state session.State, overwrite bool) (string, error) {
	if _, exists := state.Get(session.KeyCheckoutToken); exists && !overwrite {
		return "", models.ErrCheckoutTokenExists
	}

	token, err := utils.GenerateSecureToken(checkoutTokenBytes)
	if err != nil {
		return "", err
	}

	state.Set(session.KeyCheckoutToken, token)
	return token, nil
}

// Consume removes the pending token and then compares it with the submitted
// value. The token is gone afterwards whatever the outcome.
func (g *CheckoutTokenGuard) Consume(state session.State, submitted string) error {
	stored, ok := state.Take(session.KeyCheckoutToken)
	if !ok || stored == "" {
		g.logger.Warn("Checkout submitted without a pending token",
			zap.String("session", logging.TokenPrefix(state.ID())))
		return models.ErrDuplicateOrExpiredSubmission
	}

	if submitted == "" || !utils.ConstantTimeEqual(stored, submitted) {
		g.logger.Warn("Checkout token mismatch",
			zap.String("session", logging.TokenPrefix(state.ID())),
			zap.String("token", logging.TokenPrefix(submitted)))
		return models.ErrDuplicateOrExpiredSubmission
	}

	return nil
}

// Discard drops the pending token. A submission that could not be read still
// spends its token.
func (g *CheckoutTokenGuard) Discard(state session.State) {
	if _, ok := state.Take(session.KeyCheckoutToken); ok {
		g.logger.Debug("Checkout token discarded",
			zap.String("session", logging.TokenPrefix(state.ID())))
	}
}
