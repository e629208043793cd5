package ports

import "context"

// WelcomeBonusPort grants starting chips at most once per user.
type WelcomeBonusPort interface {
	// GrantWelcomeBonusOnce attempts to grant the one-time starting chips.
	// Returns granted=false when the chips were already granted.
	GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error)
}
