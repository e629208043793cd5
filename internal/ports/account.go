package ports

import "context"

// AccountPort updates the public profile shown at a table.
type AccountPort interface {
	// UpdateProfile sets the username and display name for userID.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
