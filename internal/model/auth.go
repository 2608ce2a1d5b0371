package model

import "github.com/google/uuid"

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Role   string
}
