package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PgStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPgStore(pool *pgxpool.Pool, logger *zap.Logger) *PgStore {
	return &PgStore{pool: pool, logger: logger}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Price,
		&d.AcceptingAppointments,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func (s *PgStore) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, specialty, price, accepting_appointments, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (s *PgStore) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, specialty, price, accepting_appointments, created_at, updated_at
		FROM doctors
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	return result, rows.Err()
}

func (s *PgStore) IsSlotFree(ctx context.Context, doctorID uuid.UUID, slot Slot) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM doctor_calendar
			WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		)
	`, doctorID, slot.Date, slot.Time).Scan(&taken)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// ReserveSlot relies on the unique key over (doctor_id, slot_date, slot_time):
// the insert either claims the slot or touches zero rows, in one statement.
func (s *PgStore) ReserveSlot(ctx context.Context, doctorID uuid.UUID, slot Slot) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO doctor_calendar (doctor_id, slot_date, slot_time, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
	`, doctorID, slot.Date, slot.Time)
	if err != nil {
		return fmt.Errorf("reserve slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotTaken
	}
	return nil
}

func (s *PgStore) ReleaseSlot(ctx context.Context, doctorID uuid.UUID, slot Slot) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM doctor_calendar
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
	`, doctorID, slot.Date, slot.Time)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("release of already-free slot",
			zap.String("doctor_id", doctorID.String()),
			zap.String("slot", slot.String()),
		)
	}
	return nil
}

func (s *PgStore) SetAccepting(ctx context.Context, doctorID uuid.UUID, accepting bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE doctors
		SET accepting_appointments = $2,
		    updated_at = now()
		WHERE id = $1
	`, doctorID, accepting)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (s *PgStore) SetPrice(ctx context.Context, doctorID uuid.UUID, price int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE doctors
		SET price = $2,
		    updated_at = now()
		WHERE id = $1
	`, doctorID, price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}
