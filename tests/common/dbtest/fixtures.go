//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RateTableID is the fixed id of the seeded active rate table so tests can
// reference its buckets and add-ons directly.
var RateTableID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// RateTableVersion of the seeded table; quotes produced in e2e runs carry it.
const RateTableVersion = 3

// SeedReferenceData installs the active rate table, its duration buckets and
// add-ons, and the holiday calendar that e2e scenarios price against.
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO rate_tables (
			id, version, base_party_size, per_person_overage_cents,
			weekend_surcharge_bps, holiday_surcharge_bps,
			large_group_discount_bps, large_group_threshold,
			tax_rate_bps, deposit_bps, bucket_tolerance_min,
			avg_meal_cost_cents, meals_per_day, active
		) VALUES ($1, $2, 4, 7500, 1500, 1000, 1000, 8, 890, 2500, 60, 3500, 1, true)
		ON CONFLICT (version) DO NOTHING;
	`, RateTableID, RateTableVersion)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO rate_buckets (rate_table_id, duration_min, base_cents) VALUES
			($1, 240, 80000),
			($1, 360, 100000),
			($1, 480, 120000)
		ON CONFLICT (rate_table_id, duration_min) DO NOTHING;
	`, RateTableID)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO add_ons (
			rate_table_id, code, label, flat_cents, per_person_cents, winery_stop, tasting_fee_cents
		) VALUES
			($1, 'winery_stop', 'Winery stop', 5000, 0, true, 2500),
			($1, 'picnic_lunch', 'Picnic lunch', 0, 4500, false, 0)
		ON CONFLICT (rate_table_id, code) DO NOTHING;
	`, RateTableID)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO holidays (holiday_date, name) VALUES
			('2026-07-04', 'Independence Day'),
			('2026-12-25', 'Christmas Day')
		ON CONFLICT (holiday_date) DO NOTHING;
	`)
	return err
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
