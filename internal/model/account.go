package model

import "time"

type Account struct {
	ID          string    `json:"id" db:"id"`
	UID         string    `json:"uid" db:"uid"`
	Name        string    `json:"name" db:"name"`
	RealmStatus string    `json:"realm_status" db:"realm_status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// AccountMember links a user to an account with a role. A user cannot belong
// to the same account twice; the (user_id, account_id) unique constraint is
// the source of truth for that invariant.
type AccountMember struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	AccountID string    `json:"account_id" db:"account_id"`
	RoleID    string    `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
