package models

import "time"

// Project is the owning credential scope for tracked sessions. The API key is
// stored hashed; the raw key is only ever seen in request headers.
type Project struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	KeyPrefix string    `json:"keyPrefix"`
	HashedKey []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
