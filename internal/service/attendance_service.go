package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"city-spots/internal/domain"
	"city-spots/internal/repository"
)

// ErrRecordNotFound indica que el usuario todavia no tiene registro de
// asistencia. No es un error de infraestructura: un usuario nuevo
// empieza sin registro.
var ErrRecordNotFound = errors.New("attendance record not found")

// AttendanceService expone el registro de asistencia por usuario con la
// semantica del almacen remoto: lectura con not-found diferenciado y
// escritura del listado completo.
type AttendanceService struct {
	logger  *zap.Logger
	records repository.AttendanceRepository
}

func NewAttendanceService(logger *zap.Logger, records repository.AttendanceRepository) *AttendanceService {
	return &AttendanceService{logger: logger, records: records}
}

// GetRecord devuelve el registro del usuario. AttendedIDs nunca es nil.
func (s *AttendanceService) GetRecord(ctx context.Context, userID string) (domain.AttendanceRecord, error) {
	rec, err := s.records.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AttendanceRecord{}, ErrRecordNotFound
		}
		return domain.AttendanceRecord{}, err
	}
	if rec.AttendedIDs == nil {
		rec.AttendedIDs = []string{}
	}
	return rec, nil
}

// UpdateRecord reemplaza el listado completo del usuario.
func (s *AttendanceService) UpdateRecord(ctx context.Context, userID string, attendedIDs []string, updatedAt time.Time) error {
	if attendedIDs == nil {
		attendedIDs = []string{}
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	rec := domain.AttendanceRecord{
		UserID:      userID,
		AttendedIDs: attendedIDs,
		UpdatedAt:   updatedAt,
	}
	if err := s.records.Upsert(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.Error("attendance upsert failed", zap.Error(err), zap.String("user_id", userID))
		}
		return err
	}
	return nil
}
