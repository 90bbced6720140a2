package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"city-spots/internal/domain"
	"city-spots/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de cuenta.
type AuthHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
	siteURL  string
}

func NewAuthHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService, siteURL string) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
		siteURL:  strings.TrimRight(strings.TrimSpace(siteURL), "/"),
	}
}

// Signup maneja POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		case errors.Is(err, service.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters long"})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		default:
			h.logger.Error("signup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign up user"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.SessionUser(), "status": "confirmation_sent"})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	session, err := h.issueSession(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	tokens, err := h.jwtServ.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	claims, err := h.jwtServ.ParseAccessToken(tokens.AccessToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	session := domain.Session{
		User:         domain.SessionUser{ID: claims.UserID, Email: claims.Email},
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Logout maneja POST /auth/logout. Revocar un token ya revocado o
// ausente no es un error para el llamador.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if h.jwtServ != nil {
		_ = h.jwtServ.RevokeRefresh(req.RefreshToken)
	}
	c.Status(http.StatusNoContent)
}

// Session maneja GET /auth/session.
func (h *AuthHandler) Session(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": domain.SessionUser{ID: claims.UserID, Email: claims.Email}})
}

// ResetPassword maneja POST /auth/reset-password. Responde igual exista
// o no la cuenta para no revelar direcciones registradas.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email address is required"})
		return
	}

	err := h.userServ.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		if errors.Is(err, service.ErrEmailSendFailure) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not send password reset link"})
			return
		}
		h.logger.Error("password reset request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send password reset link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reset_sent"})
}

// UpdatePassword maneja POST /auth/update-password.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req struct {
		Token           string `json:"token" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirm_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "both password fields are required"})
		return
	}

	_, err := h.userServ.UpdatePasswordWithToken(c.Request.Context(), req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		case errors.Is(err, service.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters long"})
		case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrTokenInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired recovery link"})
		default:
			h.logger.Error("update password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update password"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password_updated"})
}

// Confirm maneja GET /auth/confirm. Es el destino del enlace enviado
// por correo; los errores viajan como query param del redirect, no como
// JSON.
func (h *AuthHandler) Confirm(c *gin.Context) {
	wireToken := c.Query("token_hash")
	linkType := c.Query("type")
	next := c.Query("next")
	if next == "" {
		next = "/"
	}

	if wireToken == "" || linkType != "signup" {
		c.Redirect(http.StatusSeeOther, h.errorRedirect("Invalid or expired confirmation link."))
		return
	}

	if _, err := h.userServ.ConfirmEmail(c.Request.Context(), wireToken); err != nil {
		h.logger.Warn("email confirmation failed", zap.Error(err))
		c.Redirect(http.StatusSeeOther, h.errorRedirect("Invalid or expired confirmation link."))
		return
	}

	c.Redirect(http.StatusSeeOther, h.siteURL+next)
}

func (h *AuthHandler) errorRedirect(message string) string {
	return h.siteURL + "/error?" + url.Values{"message": {message}}.Encode()
}

func (h *AuthHandler) issueSession(user domain.User) (domain.Session, error) {
	if h.jwtServ == nil {
		return domain.Session{}, errors.New("jwt not configured")
	}
	tokens, err := h.jwtServ.GeneratePair(user)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		User:         user.SessionUser(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}, nil
}
