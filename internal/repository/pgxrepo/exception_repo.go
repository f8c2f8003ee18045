package pgxrepo

import (
	"context"
	"fmt"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type exceptionRepository struct {
	db *pgxpool.Pool
}

func NewExceptionRepository(db *pgxpool.Pool) domain.ExceptionRepository {
	return &exceptionRepository{db: db}
}

const exceptionColumns = `id, zone_id, exception_date, kind, start_time, end_time,
	special_cost, special_time_min, special_time_max, reason, is_active, created_at, updated_at`

// scanExceptionRecord reads the flat row without checking the per-kind rules.
func scanExceptionRecord(row pgx.CollectableRow) (domain.ExceptionRecord, error) {
	var (
		rec        domain.ExceptionRecord
		date       pgtype.Date
		kind       string
		start, end pgtype.Time
		cost       pgtype.Numeric
		lo, hi     *int32
	)
	err := row.Scan(&rec.ID, &rec.ZoneID, &date, &kind, &start, &end,
		&cost, &lo, &hi, &rec.Reason, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.ExceptionRecord{}, err
	}
	rec.Date = domain.DateOf(date.Time).String()
	rec.Kind = domain.ExceptionKind(kind)
	rec.Start = pgToTimeOfDay(start)
	rec.End = pgToTimeOfDay(end)
	rec.SpecialCost = numericToFloat64Ptr(cost)
	rec.SpecialTimeMin = int32PtrToInt(lo)
	rec.SpecialTimeMax = int32PtrToInt(hi)
	return rec, nil
}

// scanException is the strict form used for single-row reads and writes: a
// row that breaks the per-kind rules is an error.
func scanException(row pgx.CollectableRow) (domain.Exception, error) {
	rec, err := scanExceptionRecord(row)
	if err != nil {
		return domain.Exception{}, err
	}
	exc, verr := rec.ToException()
	if verr != nil {
		return domain.Exception{}, fmt.Errorf("stored exception %d: %w", rec.ID, verr)
	}
	return exc, nil
}

// keepWellFormed drops rows that cannot be rebuilt and logs each one. Rows
// written outside the service (bulk imports, older schemas) may lack the
// per-kind fields.
func keepWellFormed(ctx context.Context, recs []domain.ExceptionRecord) []domain.Exception {
	valid, malformed := domain.DecodeExceptionRecords(recs)
	for _, m := range malformed {
		logger.WithZone(ctx, m.ZoneID).Warn().
			Int64("exception_id", m.ID).
			Str("kind", string(m.Kind)).
			Strs("problems", m.Problems).
			Msg("Skipping malformed stored exception")
	}
	return valid
}

type exceptionParams struct {
	date       pgtype.Date
	kind       string
	start, end pgtype.Time
	cost       pgtype.Numeric
	lo, hi     *int32
}

func toExceptionParams(exc *domain.Exception) (exceptionParams, error) {
	rec := exc.Record()
	cost, err := float64PtrToNumeric(rec.SpecialCost)
	if err != nil {
		return exceptionParams{}, fmt.Errorf("special cost: %w", err)
	}
	return exceptionParams{
		date:  dateToPg(exc.Date),
		kind:  string(rec.Kind),
		start: timeOfDayToPg(rec.Start),
		end:   timeOfDayToPg(rec.End),
		cost:  cost,
		lo:    intPtrToInt32(rec.SpecialTimeMin),
		hi:    intPtrToInt32(rec.SpecialTimeMax),
	}, nil
}

func (r *exceptionRepository) ListExceptionsByZone(ctx context.Context, zoneID int32) ([]domain.Exception, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+exceptionColumns+` FROM zone_exceptions WHERE zone_id = $1 ORDER BY exception_date, id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list exceptions of zone %d: %w", zoneID, err)
	}
	recs, err := pgx.CollectRows(rows, scanExceptionRecord)
	if err != nil {
		return nil, fmt.Errorf("list exceptions of zone %d: %w", zoneID, err)
	}
	return keepWellFormed(ctx, recs), nil
}

func (r *exceptionRepository) FindExceptionsForDate(ctx context.Context, zoneID int32, date domain.Date) ([]domain.Exception, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+exceptionColumns+` FROM zone_exceptions WHERE zone_id = $1 AND exception_date = $2 ORDER BY id`,
		zoneID, dateToPg(date))
	if err != nil {
		return nil, fmt.Errorf("find exceptions of zone %d on %s: %w", zoneID, date, err)
	}
	recs, err := pgx.CollectRows(rows, scanExceptionRecord)
	if err != nil {
		return nil, fmt.Errorf("find exceptions of zone %d on %s: %w", zoneID, date, err)
	}
	return keepWellFormed(ctx, recs), nil
}

func (r *exceptionRepository) FindMalformedExceptions(ctx context.Context, zoneID int32) ([]domain.MalformedException, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+exceptionColumns+` FROM zone_exceptions WHERE zone_id = $1 ORDER BY exception_date, id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("audit exceptions of zone %d: %w", zoneID, err)
	}
	recs, err := pgx.CollectRows(rows, scanExceptionRecord)
	if err != nil {
		return nil, fmt.Errorf("audit exceptions of zone %d: %w", zoneID, err)
	}
	_, malformed := domain.DecodeExceptionRecords(recs)
	return malformed, nil
}

func (r *exceptionRepository) GetExceptionByID(ctx context.Context, id int64) (*domain.Exception, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+exceptionColumns+` FROM zone_exceptions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get exception %d: %w", id, err)
	}
	exc, err := pgx.CollectExactlyOneRow(rows, scanException)
	if err != nil {
		return nil, notFound(err, "exception", id)
	}
	return &exc, nil
}

func (r *exceptionRepository) CreateException(ctx context.Context, exc *domain.Exception) (*domain.Exception, error) {
	p, err := toExceptionParams(exc)
	if err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}
	rows, err := conn(ctx, r.db).Query(ctx, `
		INSERT INTO zone_exceptions (zone_id, exception_date, kind, start_time, end_time,
			special_cost, special_time_min, special_time_max, reason, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+exceptionColumns,
		exc.ZoneID, p.date, p.kind, p.start, p.end, p.cost, p.lo, p.hi, exc.Reason, exc.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanException)
	if err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}
	return &saved, nil
}

func (r *exceptionRepository) UpdateException(ctx context.Context, exc *domain.Exception) (*domain.Exception, error) {
	p, err := toExceptionParams(exc)
	if err != nil {
		return nil, fmt.Errorf("update exception %d: %w", exc.ID, err)
	}
	rows, err := conn(ctx, r.db).Query(ctx, `
		UPDATE zone_exceptions
		SET exception_date = $2, kind = $3, start_time = $4, end_time = $5,
			special_cost = $6, special_time_min = $7, special_time_max = $8,
			reason = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+exceptionColumns,
		exc.ID, p.date, p.kind, p.start, p.end, p.cost, p.lo, p.hi, exc.Reason, exc.IsActive)
	if err != nil {
		return nil, fmt.Errorf("update exception %d: %w", exc.ID, err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, scanException)
	if err != nil {
		return nil, notFound(err, "update exception", exc.ID)
	}
	return &saved, nil
}

func (r *exceptionRepository) DeleteException(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM zone_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exception %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete exception %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
