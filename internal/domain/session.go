package domain

import "time"

// Session agrupa el usuario autenticado con su par de tokens vigente.
type Session struct {
	User         SessionUser `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// SessionEvent identifica los cambios de sesion que emite la autoridad remota.
type SessionEvent string

const (
	EventSignedIn         SessionEvent = "signed-in"
	EventSignedOut        SessionEvent = "signed-out"
	EventTokenRefreshed   SessionEvent = "token-refreshed"
	EventInitialSession   SessionEvent = "initial-session"
	EventPasswordRecovery SessionEvent = "password-recovery"
)
