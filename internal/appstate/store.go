package appstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"city-spots/internal/domain"
)

// Errores con los que el almacen remoto clasifica sus fallos. Las
// implementaciones de RecordStore deben envolverlos para que el store
// pueda decidir entre rollback simple y refresh-and-retry.
var (
	ErrRecordNotFound   = errors.New("user record not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// UserRecord es el registro remoto por usuario visto desde el cliente.
type UserRecord struct {
	AttendedIDs []string
	UpdatedAt   time.Time
}

// SessionAuthority es la porcion de la autoridad de sesion remota que
// el store consume.
type SessionAuthority interface {
	GetSession(ctx context.Context) (*domain.Session, error)
	RefreshSession(ctx context.Context) (*domain.Session, error)
	OnSessionChange(fn func(event domain.SessionEvent, session *domain.Session)) (unsubscribe func())
}

// RecordStore es el almacen remoto de registros por usuario.
type RecordStore interface {
	GetUserRecord(ctx context.Context, userID string) (UserRecord, error)
	UpdateUserRecord(ctx context.Context, userID string, record UserRecord) error
}

// Notifier recibe los avisos destinados al usuario.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapta una funcion a Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Store es la fuente unica de verdad del cliente: seleccion de filtros,
// usuario actual y conjunto de asistencia, mas la orquestacion que lo
// mantiene consistente con el almacen remoto.
//
// Se construye una vez al inicio y se inyecta en cada consumidor; los
// lectores externos deben tratar lo que devuelven los accessors como
// snapshots de solo lectura.
type Store struct {
	logger   *zap.Logger
	sessions SessionAuthority
	records  RecordStore
	notifier Notifier
	cache    *FallbackCache

	mu               sync.Mutex
	selectedCategory domain.Category
	selectedRegion   domain.Region
	currentUser      *domain.SessionUser
	attendedIDs      []string
	profileLoading   bool
}

// Option configura el Store al construirlo.
type Option func(*Store)

// WithFallbackCache habilita el cache local pre-autenticacion.
func WithFallbackCache(cache *FallbackCache) Option {
	return func(s *Store) { s.cache = cache }
}

func NewStore(logger *zap.Logger, sessions SessionAuthority, records RecordStore, notifier Notifier, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	s := &Store{
		logger:           logger,
		sessions:         sessions,
		records:          records,
		notifier:         notifier,
		selectedCategory: domain.CategoryAll,
		selectedRegion:   domain.RegionAll,
		attendedIDs:      []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSelectedCategory asigna el filtro de categoria. Sin efectos
// secundarios; siempre tiene exito.
func (s *Store) SetSelectedCategory(category domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedCategory = category
}

// SetSelectedRegion asigna el filtro de region.
func (s *Store) SetSelectedRegion(region domain.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedRegion = region
}

func (s *Store) SelectedCategory() domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedCategory
}

func (s *Store) SelectedRegion() domain.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedRegion
}

// CurrentUser devuelve el usuario de sesion cacheado, o nil.
func (s *Store) CurrentUser() *domain.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentUser == nil {
		return nil
	}
	u := *s.currentUser
	return &u
}

// AttendedIDs devuelve un snapshot del conjunto de asistencia.
func (s *Store) AttendedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.attendedIDs))
	copy(out, s.attendedIDs)
	return out
}

// IsAttended reporta si el id esta marcado.
func (s *Store) IsAttended(locationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsID(s.attendedIDs, locationID)
}

func (s *Store) ProfileLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileLoading
}

// InitializeAuthListener registra el store ante la autoridad de sesion
// y hace una comprobacion inmediata para cubrir una sesion ya
// existente. El llamador es dueno del handle de limpieza y debe
// invocarlo exactamente una vez al desmontar el contexto que escucha;
// no hacerlo filtra la suscripcion por la vida del proceso.
func (s *Store) InitializeAuthListener(ctx context.Context) func() {
	unsubscribe := s.sessions.OnSessionChange(func(event domain.SessionEvent, session *domain.Session) {
		switch event {
		case domain.EventSignedIn, domain.EventTokenRefreshed, domain.EventInitialSession:
			if session != nil {
				user := session.User
				s.SetUserAndProfile(context.Background(), &user)
				return
			}
			s.SetUserAndProfile(context.Background(), nil)
		case domain.EventSignedOut:
			s.SetUserAndProfile(context.Background(), nil)
		case domain.EventPasswordRecovery:
			// La sesion de recuperacion no carga perfil ni cambia el
			// usuario cacheado.
		}
	})

	// Comprobacion inmediata: el listener puede engancharse despues de
	// que la sesion ya exista.
	sess, err := s.sessions.GetSession(ctx)
	if err == nil && sess != nil {
		user := sess.User
		s.SetUserAndProfile(ctx, &user)
	} else if s.cache != nil {
		ids := s.cache.Load()
		s.mu.Lock()
		if s.currentUser == nil {
			s.attendedIDs = ids
		}
		s.mu.Unlock()
	}

	return unsubscribe
}

// SetUserAndProfile fija el usuario cacheado de inmediato y carga su
// registro remoto. Es terminal: todo modo de fallo degrada a conjunto
// vacio en lugar de propagarse, y el flag de carga siempre queda en
// false al terminar.
func (s *Store) SetUserAndProfile(ctx context.Context, user *domain.SessionUser) {
	s.mu.Lock()
	if user == nil {
		s.currentUser = nil
		s.attendedIDs = []string{}
		s.profileLoading = false
		s.mu.Unlock()
		return
	}
	u := *user
	s.currentUser = &u
	s.profileLoading = true
	s.mu.Unlock()

	ids := []string{}
	record, err := s.records.GetUserRecord(ctx, user.ID)
	switch {
	case err == nil:
		if record.AttendedIDs != nil {
			ids = record.AttendedIDs
		}
	case errors.Is(err, ErrRecordNotFound):
		// Usuario nuevo sin registro: conjunto vacio.
	default:
		s.logger.Warn("profile fetch failed", zap.Error(err), zap.String("user_id", user.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// El resultado puede llegar despues de un cambio de usuario; solo
	// se aplica si el usuario sigue siendo el mismo.
	if s.currentUser == nil || s.currentUser.ID != user.ID {
		return
	}
	s.attendedIDs = ids
	s.profileLoading = false
}

// ToggleAttendedEvent alterna la pertenencia del id en el conjunto de
// asistencia: aplica el cambio local de forma optimista, escribe el
// listado completo al almacen remoto y revierte si la escritura falla.
// Ante un error de sesion expirada intenta un unico refresh y reintenta
// la operacion completa una sola vez.
func (s *Store) ToggleAttendedEvent(ctx context.Context, locationID string) error {
	return s.toggleAttended(ctx, locationID, false)
}

func (s *Store) toggleAttended(ctx context.Context, locationID string, retried bool) error {
	s.mu.Lock()
	user := s.currentUser
	s.mu.Unlock()

	if user == nil {
		// Ultimo recurso: comprobar si existe una sesion que el
		// listener todavia no reporto.
		sess, err := s.sessions.GetSession(ctx)
		if err != nil || sess == nil {
			s.notifier.Notify("You must be logged in to mark attendance.")
			return ErrNotAuthenticated
		}
		adopted := sess.User
		s.SetUserAndProfile(ctx, &adopted)
		s.mu.Lock()
		user = s.currentUser
		s.mu.Unlock()
		if user == nil {
			s.notifier.Notify("You must be logged in to mark attendance.")
			return ErrNotAuthenticated
		}
	}

	// Fase 1: snapshot del valor previo y calculo del nuevo conjunto.
	s.mu.Lock()
	previous := make([]string, len(s.attendedIDs))
	copy(previous, s.attendedIDs)
	next := toggleID(previous, locationID)

	// Fase 2: aplicacion optimista; la UI refleja el cambio antes de
	// que la escritura remota termine.
	s.attendedIDs = next
	userID := user.ID
	s.mu.Unlock()

	// Fase 3: commit remoto o rollback.
	err := s.records.UpdateUserRecord(ctx, userID, UserRecord{
		AttendedIDs: next,
		UpdatedAt:   time.Now().UTC(),
	})
	if err == nil {
		if s.cache != nil {
			if cacheErr := s.cache.Save(next); cacheErr != nil {
				s.logger.Debug("fallback cache save failed", zap.Error(cacheErr))
			}
		}
		return nil
	}

	s.rollback(userID, previous)

	if errors.Is(err, ErrSessionExpired) {
		if !retried {
			if _, refreshErr := s.sessions.RefreshSession(ctx); refreshErr == nil {
				return s.toggleAttended(ctx, locationID, true)
			}
		}
		s.notifier.Notify("Your session has expired. Please log in again.")
		return ErrSessionExpired
	}

	s.logger.Warn("attendance write failed", zap.Error(err), zap.String("location_id", locationID))
	s.notifier.Notify("Could not save attendance: " + err.Error())
	return err
}

// rollback restaura el conjunto previo al toggle, solo si el usuario
// sigue siendo el mismo que origino la escritura.
func (s *Store) rollback(userID string, previous []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentUser == nil || s.currentUser.ID != userID {
		return
	}
	s.attendedIDs = previous
}

func toggleID(ids []string, locationID string) []string {
	if containsID(ids, locationID) {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != locationID {
				out = append(out, id)
			}
		}
		return out
	}
	out := make([]string, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, locationID)
}

func containsID(ids []string, locationID string) bool {
	for _, id := range ids {
		if id == locationID {
			return true
		}
	}
	return false
}
