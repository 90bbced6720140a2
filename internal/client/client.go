package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"city-spots/internal/appstate"
	"city-spots/internal/domain"
)

// Client consume la API de city-spots y expone las capacidades que el
// estado del cliente necesita: autoridad de sesion (login, signup,
// signout, refresh, recuperacion de contrasena, eventos de cambio de
// sesion) y almacen de registros por usuario.
//
// Implementa appstate.SessionAuthority y appstate.RecordStore.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	session   *domain.Session
	listeners map[int]func(domain.SessionEvent, *domain.Session)
	nextID    int
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		listeners: make(map[int]func(domain.SessionEvent, *domain.Session)),
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// SignInWithPassword autentica con email y contrasena.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp struct {
		Session domain.Session `json:"session"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "", &resp)
	if err != nil {
		return nil, err
	}
	c.adoptSession(&resp.Session, domain.EventSignedIn)
	return &resp.Session, nil
}

// SignUp registra una cuenta nueva. La sesion no queda activa hasta que
// el usuario confirma su email e inicia sesion.
func (c *Client) SignUp(ctx context.Context, email, password string) (domain.SessionUser, error) {
	var resp struct {
		User domain.SessionUser `json:"user"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	}, "", &resp)
	if err != nil {
		return domain.SessionUser{}, err
	}
	return resp.User, nil
}

// SignOut revoca el refresh token y descarta la sesion local. Es
// idempotente: sin sesion activa no hace nada y no falla.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	err := c.doJSON(ctx, http.MethodPost, "/auth/logout", map[string]string{
		"refresh_token": sess.RefreshToken,
	}, "", nil)

	c.adoptSession(nil, domain.EventSignedOut)
	if err != nil {
		// La sesion local ya se descarto; el fallo remoto solo se reporta.
		return err
	}
	return nil
}

// GetSession devuelve la sesion vigente, o nil si no hay ninguna o ya
// expiro y no se puede refrescar.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil, nil
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		refreshed, err := c.RefreshSession(ctx)
		if err != nil {
			return nil, nil
		}
		return refreshed, nil
	}
	copied := *sess
	return &copied, nil
}

// RefreshSession rota el par de tokens contra la autoridad remota.
func (c *Client) RefreshSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil, appstate.ErrSessionExpired
	}

	var resp struct {
		Session domain.Session `json:"session"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": sess.RefreshToken,
	}, "", &resp)
	if err != nil {
		return nil, err
	}
	c.adoptSession(&resp.Session, domain.EventTokenRefreshed)
	return &resp.Session, nil
}

// ResetPasswordForEmail solicita el correo de recuperacion.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/reset-password", map[string]string{
		"email": email,
	}, "", nil)
}

// UpdateUser fija una nueva contrasena usando el token de recuperacion
// del enlace recibido por correo.
func (c *Client) UpdateUser(ctx context.Context, recoveryToken, password, confirmPassword string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/update-password", map[string]string{
		"token":            recoveryToken,
		"password":         password,
		"confirm_password": confirmPassword,
	}, "", nil)
}

// OnSessionChange registra un callback para eventos de sesion y
// devuelve la funcion para darse de baja. Si ya hay una sesion activa
// el callback recibe un evento initial-session inmediato.
func (c *Client) OnSessionChange(fn func(event domain.SessionEvent, session *domain.Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	sess := c.session
	c.mu.Unlock()

	if sess != nil {
		copied := *sess
		fn(domain.EventInitialSession, &copied)
	}

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// GetUserRecord lee el registro remoto del usuario.
func (c *Client) GetUserRecord(ctx context.Context, userID string) (appstate.UserRecord, error) {
	token := c.accessToken()
	var resp struct {
		Record struct {
			AttendedIDs []string  `json:"attended_ids"`
			UpdatedAt   time.Time `json:"updated_at"`
		} `json:"record"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/me/record", nil, token, &resp)
	if err != nil {
		return appstate.UserRecord{}, classifyRecordError(err)
	}
	ids := resp.Record.AttendedIDs
	if ids == nil {
		ids = []string{}
	}
	return appstate.UserRecord{AttendedIDs: ids, UpdatedAt: resp.Record.UpdatedAt}, nil
}

// UpdateUserRecord escribe el listado completo del usuario.
func (c *Client) UpdateUserRecord(ctx context.Context, userID string, record appstate.UserRecord) error {
	token := c.accessToken()
	err := c.doJSON(ctx, http.MethodPut, "/me/record", map[string]any{
		"attended_ids": record.AttendedIDs,
		"updated_at":   record.UpdatedAt,
	}, token, nil)
	if err != nil {
		return classifyRecordError(err)
	}
	return nil
}

// ListLocations consulta el catalogo con los filtros dados.
func (c *Client) ListLocations(ctx context.Context, category domain.Category, region domain.Region) ([]domain.Location, error) {
	query := url.Values{}
	if category != "" && category != domain.CategoryAll {
		query.Set("category", string(category))
	}
	if region != "" && region != domain.RegionAll {
		query.Set("region", string(region))
	}
	path := "/locations"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp struct {
		Locations []domain.Location `json:"locations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) adoptSession(sess *domain.Session, event domain.SessionEvent) {
	c.mu.Lock()
	c.session = sess
	fns := make([]func(domain.SessionEvent, *domain.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		var copied *domain.Session
		if sess != nil {
			cs := *sess
			copied = &cs
		}
		fn(event, copied)
	}
}

func classifyRecordError(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return appstate.ErrRecordNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", appstate.ErrSessionExpired, apiErr.Message)
		}
	}
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return &apiError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
