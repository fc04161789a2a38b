package model

import (
	"time"

	"github.com/google/uuid"
)

const RoleUser = "user"

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	Avatar       string    `json:"avatar"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ProfilePatch struct {
	Name   *string
	Bio    *string
	Avatar *string
}
