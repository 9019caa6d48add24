package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-booking/internal/config"
	"github.com/clinicdesk/appointment-booking/internal/db"
	"github.com/clinicdesk/appointment-booking/internal/logging"
)

// The audit worker is read-only. It periodically cross-checks the doctor
// calendar against the appointment records: every calendar row must back a
// scheduled or completed appointment for the same triple, and every such
// appointment must hold a calendar row. Drift is logged, never repaired
// automatically.

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("audit-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.AuditInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Run once at startup
	runOnce(rootCtx, pgPool, logger)

	ticker := time.NewTicker(cfg.AuditInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping audit worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, pgPool, logger)
		}
	}
}

func runOnce(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()

	orphaned, err := orphanedCalendarRows(runCtx, pool, logger)
	if err != nil {
		logger.Error("audit calendar rows", zap.Error(err))
		return
	}

	missing, err := missingCalendarRows(runCtx, pool, logger)
	if err != nil {
		logger.Error("audit appointments", zap.Error(err))
		return
	}

	logger.Info("audit run complete",
		zap.Int("orphaned_calendar_rows", orphaned),
		zap.Int("appointments_missing_calendar", missing),
		zap.Duration("took", time.Since(start)),
	)
}

// orphanedCalendarRows finds calendar entries with no live appointment
// occupying the same triple. They over-block bookings but cannot cause a
// double booking.
func orphanedCalendarRows(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int, error) {
	rows, err := pool.Query(ctx, `
		SELECT c.doctor_id, c.slot_date, c.slot_time
		FROM doctor_calendar c
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.doctor_id = c.doctor_id
			  AND a.slot_date = c.slot_date
			  AND a.slot_time = c.slot_time
			  AND a.status IN ('scheduled', 'completed')
		)
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var doctorID, date, timeOfDay string
		if err := rows.Scan(&doctorID, &date, &timeOfDay); err != nil {
			return count, err
		}
		count++
		logger.Warn("calendar row without live appointment",
			zap.String("doctor_id", doctorID),
			zap.String("date", date),
			zap.String("time", timeOfDay),
		)
	}

	return count, rows.Err()
}

// missingCalendarRows finds live appointments whose slot is absent from the
// calendar. These are the dangerous kind: the slot looks free.
func missingCalendarRows(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int, error) {
	rows, err := pool.Query(ctx, `
		SELECT a.id, a.doctor_id, a.slot_date, a.slot_time
		FROM appointments a
		WHERE a.status IN ('scheduled', 'completed')
		  AND NOT EXISTS (
			SELECT 1 FROM doctor_calendar c
			WHERE c.doctor_id = a.doctor_id
			  AND c.slot_date = a.slot_date
			  AND c.slot_time = a.slot_time
		)
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var apptID, doctorID, date, timeOfDay string
		if err := rows.Scan(&apptID, &doctorID, &date, &timeOfDay); err != nil {
			return count, err
		}
		count++
		logger.Error("live appointment without calendar row",
			zap.String("appointment_id", apptID),
			zap.String("doctor_id", doctorID),
			zap.String("date", date),
			zap.String("time", timeOfDay),
		)
	}

	return count, rows.Err()
}
