package pgxrepo

import (
	"context"
	"fmt"

	"zone-coverage-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type bandRepository struct {
	db *pgxpool.Pool
}

func NewBandRepository(db *pgxpool.Pool) domain.BandRepository {
	return &bandRepository{db: db}
}

const bandColumns = `id, zone_id, from_km, to_km, cost, extra_minutes, is_active, created_at, updated_at`

func scanBand(row pgx.CollectableRow) (domain.DistanceBand, error) {
	var (
		b              domain.DistanceBand
		from, to, cost pgtype.Numeric
		extra          int32
	)
	if err := row.Scan(&b.ID, &b.ZoneID, &from, &to, &cost, &extra, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	b.FromKm = numericToFloat64(from)
	b.ToKm = numericToFloat64(to)
	b.Cost = numericToFloat64(cost)
	b.ExtraMinutes = int(extra)
	return b, nil
}

func (r *bandRepository) ListBandsByZone(ctx context.Context, zoneID int32) ([]domain.DistanceBand, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+bandColumns+` FROM zone_distance_bands WHERE zone_id = $1 ORDER BY from_km, id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list bands of zone %d: %w", zoneID, err)
	}
	bands, err := pgx.CollectRows(rows, scanBand)
	if err != nil {
		return nil, fmt.Errorf("list bands of zone %d: %w", zoneID, err)
	}
	return bands, nil
}

func (r *bandRepository) ListAllBands(ctx context.Context) ([]domain.DistanceBand, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+bandColumns+` FROM zone_distance_bands ORDER BY zone_id, from_km, id`)
	if err != nil {
		return nil, fmt.Errorf("list bands: %w", err)
	}
	bands, err := pgx.CollectRows(rows, scanBand)
	if err != nil {
		return nil, fmt.Errorf("list bands: %w", err)
	}
	return bands, nil
}

func (r *bandRepository) GetBandByID(ctx context.Context, id int64) (*domain.DistanceBand, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+bandColumns+` FROM zone_distance_bands WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get band %d: %w", id, err)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBand)
	if err != nil {
		return nil, notFound(err, "band", id)
	}
	return &b, nil
}

// bandNumerics converts the band's decimal columns.
func bandNumerics(band *domain.DistanceBand) (from, to, cost pgtype.Numeric, err error) {
	if from, err = float64ToNumeric(band.FromKm); err != nil {
		return from, to, cost, fmt.Errorf("from_km: %w", err)
	}
	if to, err = float64ToNumeric(band.ToKm); err != nil {
		return from, to, cost, fmt.Errorf("to_km: %w", err)
	}
	if cost, err = float64ToNumeric(band.Cost); err != nil {
		return from, to, cost, fmt.Errorf("cost: %w", err)
	}
	return from, to, cost, nil
}

func (r *bandRepository) CreateBand(ctx context.Context, band *domain.DistanceBand) (*domain.DistanceBand, error) {
	from, to, cost, err := bandNumerics(band)
	if err != nil {
		return nil, fmt.Errorf("create band: %w", err)
	}
	rows, err := conn(ctx, r.db).Query(ctx, `
		INSERT INTO zone_distance_bands (zone_id, from_km, to_km, cost, extra_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+bandColumns,
		band.ZoneID, from, to, cost, int32(band.ExtraMinutes), band.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create band: %w", err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanBand)
	if err != nil {
		return nil, fmt.Errorf("create band: %w", err)
	}
	return &saved, nil
}

func (r *bandRepository) UpdateBand(ctx context.Context, band *domain.DistanceBand) (*domain.DistanceBand, error) {
	from, to, cost, err := bandNumerics(band)
	if err != nil {
		return nil, fmt.Errorf("update band %d: %w", band.ID, err)
	}
	rows, err := conn(ctx, r.db).Query(ctx, `
		UPDATE zone_distance_bands
		SET from_km = $2, to_km = $3, cost = $4, extra_minutes = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bandColumns,
		band.ID, from, to, cost, int32(band.ExtraMinutes), band.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update band %d: %w", band.ID, err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanBand)
	if err != nil {
		return nil, notFound(err, "update band", band.ID)
	}
	return &saved, nil
}

func (r *bandRepository) DeleteBand(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM zone_distance_bands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete band %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete band %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
