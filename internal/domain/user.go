package domain

import "time"

type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	RecoveryTokenHash string     `json:"-"`
	RecoveryExpiresAt *time.Time `json:"-"`
	ConfirmTokenHash  string     `json:"-"`
	ConfirmExpiresAt  *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}

// SessionUser es la proyeccion de solo lectura que cachea el estado del cliente.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) SessionUser() SessionUser {
	return SessionUser{ID: u.ID, Email: u.Email}
}
