package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"pokergame/internal/ports"
)

// DefaultStartingChips is granted when no amount is configured.
const DefaultStartingChips int64 = 10000

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// StartingChipsGranted is false when the account had already received its chips.
	StartingChipsGranted bool
}

// Service handles post-auth onboarding for new players.
type Service struct {
	accounts      ports.AccountPort
	bonuses       ports.WelcomeBonusPort
	startingChips int64
	rng           *rand.Rand
}

// NewService constructs an onboarding service.
// accounts/bonuses must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, bonuses ports.WelcomeBonusPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts:      accounts,
		bonuses:       bonuses,
		startingChips: DefaultStartingChips,
		rng:           rng,
	}
}

// WithStartingChips overrides the amount granted to new players.
func (s *Service) WithStartingChips(amount int64) *Service {
	if amount > 0 {
		s.startingChips = amount
	}
	return s
}

// OnboardNewUser gives a new account a table name and its starting chips.
// Returns an error only if the chips cannot be granted.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.bonuses == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{}
	displayName := s.generateFriendlyName()
	if err := s.accounts.UpdateProfile(ctx, userID, displayName, displayName); err != nil {
		result.ProfileUpdateErr = err
	}

	granted, err := s.bonuses.GrantWelcomeBonusOnce(ctx, userID, s.startingChips, map[string]interface{}{
		"reason": "starting_chips",
	})
	if err != nil {
		return result, fmt.Errorf("failed to grant starting chips: %w", err)
	}
	result.StartingChipsGranted = granted

	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Lucky", "Steady", "Bold", "Quiet", "Sharp", "Cool", "Daring", "Patient", "Sly", "Wild"}
	nouns := []string{"Ace", "Shark", "Dealer", "River", "Flush", "Kicker", "Bluff", "Joker", "Button", "Blind"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
