package domain

import "time"

// AttendanceRecord es el registro remoto por usuario con los ids marcados
// como visitados. El orden de AttendedIDs es orden de insercion.
type AttendanceRecord struct {
	UserID      string    `json:"user_id"`
	AttendedIDs []string  `json:"attended_ids"`
	UpdatedAt   time.Time `json:"updated_at"`
}
