package identity

import "time"

// Role values stored on user accounts.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a stored account record. A user without a password hash was created
// through an identity provider and cannot authenticate with a password.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	Name            string
	AvatarURL       string
	Role            string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity is the authenticated view of a user handed to the session layer.
type Identity struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Role      string
}

// ProviderClaim is the verified claim an identity provider hands over after
// its own protocol has completed. The core trusts it as-is.
type ProviderClaim struct {
	Email       string
	Name        string
	AvatarURL   string
	Provider    string
	AccessToken string
}

func (u *User) identity() Identity {
	return Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}
