package domain

import "time"

// Mailbox providers a user can be synced from
const (
	ProviderGoogle = "google"
	ProviderIMAP   = "imap"
)

// User is an account whose mailbox is mirrored. Accounts and their
// credentials are provisioned by the sign-in flow; the mirror only reads
// them and refreshes OAuth tokens.
type User struct {
	ID       string `json:"id" gorm:"primaryKey" db:"id"`
	Email    string `json:"email" gorm:"uniqueIndex;not null" db:"email"`
	Name     string `json:"name" db:"name"`
	Provider string `json:"provider" db:"provider"` // "google" or "imap"

	// Gmail OAuth tokens
	AccessToken  string `json:"-" gorm:"type:text" db:"access_token"`
	RefreshToken string `json:"-" gorm:"type:text" db:"refresh_token"`

	// IMAP account; the password is sealed with ENCRYPTION_KEY
	ImapServer   string `json:"imap_server,omitempty" db:"imap_server"`
	ImapPort     int    `json:"imap_port,omitempty" db:"imap_port"`
	ImapPassword string `json:"-" gorm:"type:text" db:"imap_password"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
