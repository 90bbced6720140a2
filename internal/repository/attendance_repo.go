package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"city-spots/internal/domain"
)

// AttendanceRepository define el contrato de persistencia del registro
// de asistencia por usuario. GetByUserID devuelve pgx.ErrNoRows cuando
// el usuario todavia no tiene registro.
type AttendanceRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.AttendanceRecord, error)
	Upsert(ctx context.Context, record domain.AttendanceRecord) error
}

// PgAttendanceRepository implementa AttendanceRepository usando pgxpool.
type PgAttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewPgAttendanceRepository(pool *pgxpool.Pool) *PgAttendanceRepository {
	return &PgAttendanceRepository{pool: pool}
}

func (r *PgAttendanceRepository) GetByUserID(ctx context.Context, userID string) (domain.AttendanceRecord, error) {
	const query = `
		SELECT user_id, attended_ids, updated_at
		FROM attendance_records
		WHERE user_id = $1
	`
	var rec domain.AttendanceRecord
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.AttendedIDs,
		&rec.UpdatedAt,
	)
	if err != nil {
		return domain.AttendanceRecord{}, err
	}
	return rec, nil
}

func (r *PgAttendanceRepository) Upsert(ctx context.Context, record domain.AttendanceRecord) error {
	const query = `
		INSERT INTO attendance_records (user_id, attended_ids, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET attended_ids = EXCLUDED.attended_ids, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, record.UserID, record.AttendedIDs, record.UpdatedAt)
	return err
}
