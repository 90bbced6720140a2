package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"city-spots/internal/domain"
	"city-spots/internal/email"
	"city-spots/internal/repository"
)

// UserService coordina reglas de negocio para cuentas de usuario:
// registro, login, confirmacion de email y recuperacion de contrasena.
type UserService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	emailSender  email.Sender
	resetLimiter ResetRateLimiter
	siteURL      string
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, resetLimiter ResetRateLimiter, siteURL string) *UserService {
	if resetLimiter == nil {
		resetLimiter = NewResetRateLimiter(resetWindow, 3)
	}
	return &UserService{
		logger:       logger,
		users:        users,
		emailSender:  emailSender,
		resetLimiter: resetLimiter,
		siteURL:      strings.TrimRight(strings.TrimSpace(siteURL), "/"),
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
)

const (
	minPasswordLength = 6
	resetWindow       = 10 * time.Minute
	recoveryTokenTTL  = time.Hour
	confirmTokenTTL   = 24 * time.Hour
)

// Register crea la cuenta y envia el enlace de confirmacion de email.
// El fallo al enviar el correo no revierte la creacion.
func (s *UserService) Register(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrPasswordTooShort
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	userID := uuid.NewString()
	wireToken, tokenHash, err := generateLinkToken(userID)
	if err != nil {
		return domain.User{}, err
	}
	confirmExpires := time.Now().UTC().Add(confirmTokenTTL)

	user := domain.User{
		ID:               userID,
		Email:            emailAddr,
		PasswordHash:     string(hashBytes),
		ConfirmTokenHash: tokenHash,
		ConfirmExpiresAt: &confirmExpires,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	confirmURL := s.buildLink("/auth/confirm", url.Values{
		"token_hash": {wireToken},
		"type":       {"signup"},
	})
	if s.emailSender == nil {
		return user, nil
	}
	if err := s.emailSender.SendEmailConfirmation(ctx, emailAddr, confirmURL); err != nil {
		if s.logger != nil {
			s.logger.Warn("send email confirmation failed", zap.Error(err), zap.String("email", emailAddr))
		}
	}
	return user, nil
}

// Authenticate valida credenciales y devuelve el usuario.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser busca un usuario por id.
func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// ConfirmEmail verifica el token del enlace de confirmacion y marca el
// email como verificado.
func (s *UserService) ConfirmEmail(ctx context.Context, wireToken string) (domain.User, error) {
	userID, secret, ok := splitLinkToken(wireToken)
	if !ok {
		return domain.User{}, ErrTokenInvalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrTokenInvalid
		}
		return domain.User{}, err
	}
	if user.ConfirmTokenHash == "" || user.ConfirmExpiresAt == nil {
		return domain.User{}, ErrTokenInvalid
	}
	if time.Now().UTC().After(*user.ConfirmExpiresAt) {
		return domain.User{}, ErrTokenExpired
	}
	if !verifyLinkSecret(secret, user.ConfirmTokenHash) {
		return domain.User{}, ErrTokenInvalid
	}

	verifiedAt := time.Now().UTC()
	if err := s.users.VerifyEmail(ctx, user.ID, verifiedAt); err != nil {
		return domain.User{}, err
	}
	user.EmailVerifiedAt = &verifiedAt
	user.ConfirmTokenHash = ""
	user.ConfirmExpiresAt = nil
	return user, nil
}

// RequestPasswordReset genera un token de recuperacion y envia el enlace.
// Una direccion sin cuenta no es un error: no se revela si existe.
func (s *UserService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if s.users == nil {
		return errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if s.resetLimiter != nil && !s.resetLimiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	wireToken, tokenHash, err := generateLinkToken(user.ID)
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(recoveryTokenTTL)
	if err := s.users.SetRecoveryToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return err
	}

	resetURL := s.buildLink("/update-password", url.Values{"token": {wireToken}})
	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	if err := s.emailSender.SendPasswordReset(ctx, emailAddr, resetURL); err != nil {
		if s.logger != nil {
			s.logger.Warn("send password reset failed", zap.Error(err), zap.String("email", emailAddr))
		}
		return ErrEmailSendFailure
	}
	return nil
}

// UpdatePasswordWithToken consume el token de recuperacion y fija la
// nueva contrasena.
func (s *UserService) UpdatePasswordWithToken(ctx context.Context, wireToken, password, confirmPassword string) (domain.User, error) {
	password = strings.TrimSpace(password)
	confirmPassword = strings.TrimSpace(confirmPassword)
	if password == "" || confirmPassword == "" {
		return domain.User{}, ErrPasswordTooShort
	}
	if password != confirmPassword {
		return domain.User{}, ErrPasswordMismatch
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrPasswordTooShort
	}

	userID, secret, ok := splitLinkToken(wireToken)
	if !ok {
		return domain.User{}, ErrTokenInvalid
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrTokenInvalid
		}
		return domain.User{}, err
	}
	if user.RecoveryTokenHash == "" || user.RecoveryExpiresAt == nil {
		return domain.User{}, ErrTokenInvalid
	}
	if time.Now().UTC().After(*user.RecoveryExpiresAt) {
		return domain.User{}, ErrTokenExpired
	}
	if !verifyLinkSecret(secret, user.RecoveryTokenHash) {
		return domain.User{}, ErrTokenInvalid
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hashBytes)); err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = string(hashBytes)
	user.RecoveryTokenHash = ""
	user.RecoveryExpiresAt = nil
	return user, nil
}

func (s *UserService) buildLink(path string, query url.Values) string {
	base := s.siteURL
	if base == "" {
		base = "http://localhost:8080"
	}
	return fmt.Sprintf("%s%s?%s", base, path, query.Encode())
}

// generateLinkToken crea el token de enlace "userID.secret" y el hash
// salteado que se persiste.
func generateLinkToken(userID string) (string, string, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + secret))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])

	return userID + "." + secret, saltStr + ":" + hash, nil
}

func splitLinkToken(wireToken string) (userID, secret string, ok bool) {
	wireToken = strings.TrimSpace(wireToken)
	idx := strings.LastIndex(wireToken, ".")
	if idx <= 0 || idx == len(wireToken)-1 {
		return "", "", false
	}
	return wireToken[:idx], wireToken[idx+1:], true
}

func verifyLinkSecret(secret, stored string) bool {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return false
	}
	saltStr := parts[0]
	expectedHash := parts[1]
	hashBytes := sha256.Sum256([]byte(saltStr + ":" + secret))
	hash := base64.StdEncoding.EncodeToString(hashBytes[:])
	return subtle.ConstantTimeCompare([]byte(hash), []byte(expectedHash)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
