package model

import "time"

type User struct {
	ID        string    `json:"id" db:"id"`
	KCSub     string    `json:"kc_sub" db:"kc_sub"`
	Email     string    `json:"email" db:"email"`
	FullName  *string   `json:"full_name,omitempty" db:"full_name"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
