package pgxrepo

import (
	"context"
	"fmt"

	"zone-coverage-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type zoneRepository struct {
	db *pgxpool.Pool
}

func NewZoneRepository(db *pgxpool.Pool) domain.ZoneRepository {
	return &zoneRepository{db: db}
}

const zoneColumns = `id, key, label, is_active, available_24h, created_at, updated_at`

func scanZone(row pgx.CollectableRow) (domain.Zone, error) {
	var z domain.Zone
	err := row.Scan(&z.ID, &z.Key, &z.Label, &z.IsActive, &z.Available24h, &z.CreatedAt, &z.UpdatedAt)
	return z, err
}

func (r *zoneRepository) GetZoneByID(ctx context.Context, id int32) (*domain.Zone, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get zone %d: %w", id, err)
	}
	z, err := pgx.CollectExactlyOneRow(rows, scanZone)
	if err != nil {
		return nil, notFound(err, "zone", id)
	}
	return &z, nil
}

func (r *zoneRepository) ListZones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+zoneColumns+` FROM zones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	zones, err := pgx.CollectRows(rows, scanZone)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	return zones, nil
}

// UpsertZone inserts or refreshes a zone by key. Only cmd/dbtool seeds zones;
// the API treats them as read-only.
func UpsertZone(ctx context.Context, db DBTX, z domain.Zone) (*domain.Zone, error) {
	rows, err := db.Query(ctx, `
		INSERT INTO zones (key, label, is_active, available_24h)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET label = EXCLUDED.label,
		    is_active = EXCLUDED.is_active,
		    available_24h = EXCLUDED.available_24h,
		    updated_at = NOW()
		RETURNING `+zoneColumns,
		z.Key, z.Label, z.IsActive, z.Available24h)
	if err != nil {
		return nil, fmt.Errorf("upsert zone %q: %w", z.Key, err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanZone)
	if err != nil {
		return nil, fmt.Errorf("upsert zone %q: %w", z.Key, err)
	}
	return &saved, nil
}
