package model

import "time"

type Cluster struct {
	ID            string    `json:"id" db:"id"`
	UID           string    `json:"uid" db:"uid"`
	Name          string    `json:"name" db:"name"`
	Status        string    `json:"status" db:"status"`
	StatusMessage *string   `json:"status_message,omitempty" db:"status_message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
