package domain

import (
	"context"
	"time"
)

// Zone is a delivery area owned by the geography service; this service only reads it.
type Zone struct {
	ID       int32  `json:"id"`
	Key      string `json:"key"`
	Label    string `json:"label"`
	IsActive bool   `json:"isActive"`
	// Available24h opens the zone around the clock on weekdays without a schedule entry.
	Available24h bool      `json:"available24h"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ZoneRepository interface {
	GetZoneByID(ctx context.Context, id int32) (*Zone, error)
	ListZones(ctx context.Context) ([]Zone, error)
}

// ZoneLocker serializes writers per zone. The returned func releases the lock.
type ZoneLocker interface {
	Lock(ctx context.Context, zoneID int32) (func(), error)
}

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
