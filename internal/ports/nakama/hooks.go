package nakama

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"pokergame/internal/app/onboarding"
	"pokergame/internal/config"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// NewAfterAuthenticateDevice returns the hook that onboards newly created accounts:
// a table name plus the configured starting chips.
func NewAfterAuthenticateDevice(cfg *config.GameConfig) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, *api.Session, *api.AuthenticateDeviceRequest) error {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
		if !out.Created {
			return nil
		}

		userID := ""
		if ctxUserID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok {
			userID = ctxUserID
		}
		if userID == "" {
			// Resolve User ID from the session token by parsing the JWT payload manually.
			resolvedID, err := extractUserIDFromToken(out.Token)
			if err != nil {
				logger.Error("AfterAuthenticateDevice: Failed to extract user ID from token: %v", err)
				return err
			}
			userID = resolvedID
		}

		logger.Info("Onboarding new user %s", userID)

		service := onboarding.NewService(NewNakamaAccountAdapter(nk), NewNakamaWelcomeBonusAdapter(nk, cfg.Currency), nil).
			WithStartingChips(cfg.StartingChips)
		result, err := service.OnboardNewUser(ctx, userID)
		if result.ProfileUpdateErr != nil {
			logger.Warn("AfterAuthenticateDevice: Failed to update profile for user %s: %v", userID, result.ProfileUpdateErr)
		}
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Onboarding failed for user %s: %v", userID, err)
			return err
		}
		if !result.StartingChipsGranted {
			logger.Info("AfterAuthenticateDevice: Starting chips already granted for user %s", userID)
		}
		return nil
	}
}

func extractUserIDFromToken(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format")
	}

	// JWT base64 is RawUrlEncoding (no padding)
	data, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode token payload: %w", err)
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return "", fmt.Errorf("failed to unmarshal token claims: %w", err)
	}

	uid, ok := claims["uid"].(string)
	if !ok {
		return "", fmt.Errorf("token claims missing uid")
	}

	return uid, nil
}
