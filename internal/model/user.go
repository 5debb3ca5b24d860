package model

import (
	"time"
)

type User struct {
	ID           OwnerID   `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
