package pgxrepo

import (
	"context"
	"fmt"

	"zone-coverage-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type scheduleRepository struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) domain.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, zone_id, weekday, kind, start_time, end_time, is_active, created_at, updated_at`

func scanSchedule(row pgx.CollectableRow) (domain.ScheduleEntry, error) {
	var (
		e          domain.ScheduleEntry
		weekday    int16
		kind       string
		start, end pgtype.Time
	)
	if err := row.Scan(&e.ID, &e.ZoneID, &weekday, &kind, &start, &end, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	e.Weekday = domain.Weekday(weekday)
	e.Kind = domain.ScheduleKind(kind)
	e.Window = pgToWindow(start, end)
	return e, nil
}

func (r *scheduleRepository) ListSchedulesByZone(ctx context.Context, zoneID int32) ([]domain.ScheduleEntry, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+scheduleColumns+` FROM zone_schedules WHERE zone_id = $1 ORDER BY weekday, id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list schedules of zone %d: %w", zoneID, err)
	}
	entries, err := pgx.CollectRows(rows, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("list schedules of zone %d: %w", zoneID, err)
	}
	return entries, nil
}

func (r *scheduleRepository) ListAllSchedules(ctx context.Context) ([]domain.ScheduleEntry, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+scheduleColumns+` FROM zone_schedules ORDER BY zone_id, weekday, id`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return entries, nil
}

func (r *scheduleRepository) GetScheduleByID(ctx context.Context, id int64) (*domain.ScheduleEntry, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+scheduleColumns+` FROM zone_schedules WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule %d: %w", id, err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanSchedule)
	if err != nil {
		return nil, notFound(err, "schedule", id)
	}
	return &e, nil
}

func (r *scheduleRepository) CreateSchedule(ctx context.Context, entry *domain.ScheduleEntry) (*domain.ScheduleEntry, error) {
	start, end := windowToPg(entry.Window)
	rows, err := conn(ctx, r.db).Query(ctx, `
		INSERT INTO zone_schedules (zone_id, weekday, kind, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+scheduleColumns,
		entry.ZoneID, int16(entry.Weekday), string(entry.Kind), start, end, entry.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return &saved, nil
}

func (r *scheduleRepository) UpdateSchedule(ctx context.Context, entry *domain.ScheduleEntry) (*domain.ScheduleEntry, error) {
	start, end := windowToPg(entry.Window)
	rows, err := conn(ctx, r.db).Query(ctx, `
		UPDATE zone_schedules
		SET weekday = $2, kind = $3, start_time = $4, end_time = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+scheduleColumns,
		entry.ID, int16(entry.Weekday), string(entry.Kind), start, end, entry.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update schedule %d: %w", entry.ID, err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanSchedule)
	if err != nil {
		return nil, notFound(err, "update schedule", entry.ID)
	}
	return &saved, nil
}

func (r *scheduleRepository) DeleteSchedule(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM zone_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete schedule %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
