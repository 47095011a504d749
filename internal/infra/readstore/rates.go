package readstore

import (
	"context"

	"tourops-engine/internal/domain/pricing"
	"tourops-engine/internal/infra"
	"tourops-engine/internal/infra/db"
	"tourops-engine/internal/infra/repository"

	"github.com/google/uuid"
)

type RateReadStore struct {
	db db.DBTX
}

func NewRateReadStore(dbtx db.DBTX) *RateReadStore {
	return &RateReadStore{db: dbtx}
}

// ActiveRateTable assembles the single active rate table with its duration
// buckets and add-on catalogue. The result is a value snapshot; callers never
// see a half-reloaded table.
func (r *RateReadStore) ActiveRateTable(ctx context.Context) (pricing.RateTable, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, version, base_party_size, per_person_overage_cents,
		       weekend_surcharge_bps, holiday_surcharge_bps,
		       large_group_discount_bps, large_group_threshold,
		       tax_rate_bps, deposit_bps, bucket_tolerance_min,
		       avg_meal_cost_cents, meals_per_day
		FROM rate_tables
		WHERE active`,
	)

	var (
		id               uuid.UUID
		rt               pricing.RateTable
		perPersonCents   int64
		avgMealCostCents int64
	)
	err := row.Scan(
		&id, &rt.Version, &rt.BasePartySize, &perPersonCents,
		&rt.WeekendSurchargeBps, &rt.HolidaySurchargeBps,
		&rt.LargeGroupDiscountBps, &rt.LargeGroupThreshold,
		&rt.TaxRateBps, &rt.DepositBps, &rt.BucketToleranceMin,
		&avgMealCostCents, &rt.MealsPerDay,
	)
	if err != nil {
		return pricing.RateTable{}, repository.MapPgErr("failed to load active rate table", err)
	}
	rt.PerPersonOverage = pricing.Cents(perPersonCents)
	rt.AvgMealCostPerGuest = pricing.Cents(avgMealCostCents)

	if rt.BaseRateByDuration, err = r.loadBuckets(ctx, id); err != nil {
		return pricing.RateTable{}, err
	}
	if rt.AddOns, err = r.loadAddOns(ctx, id); err != nil {
		return pricing.RateTable{}, err
	}

	if err := rt.Validate(); err != nil {
		return pricing.RateTable{}, infra.WrapRepoErr("active rate table failed validation", err)
	}
	return rt, nil
}

func (r *RateReadStore) loadBuckets(ctx context.Context, rateTableID uuid.UUID) (map[int]pricing.Money, error) {
	rows, err := r.db.Query(ctx, `
		SELECT duration_min, base_cents
		FROM rate_buckets
		WHERE rate_table_id = $1`,
		rateTableID,
	)
	if err != nil {
		return nil, repository.MapPgErr("failed to load rate buckets", err)
	}
	defer rows.Close()

	buckets := make(map[int]pricing.Money)
	for rows.Next() {
		var (
			durationMin int
			baseCents   int64
		)
		if err := rows.Scan(&durationMin, &baseCents); err != nil {
			return nil, repository.MapPgErr("failed to scan rate bucket", err)
		}
		buckets[durationMin] = pricing.Cents(baseCents)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgErr("failed to iterate rate buckets", err)
	}
	return buckets, nil
}

func (r *RateReadStore) loadAddOns(ctx context.Context, rateTableID uuid.UUID) (map[string]pricing.AddOn, error) {
	rows, err := r.db.Query(ctx, `
		SELECT code, label, flat_cents, per_person_cents, winery_stop, tasting_fee_cents
		FROM add_ons
		WHERE rate_table_id = $1`,
		rateTableID,
	)
	if err != nil {
		return nil, repository.MapPgErr("failed to load add-ons", err)
	}
	defer rows.Close()

	addOns := make(map[string]pricing.AddOn)
	for rows.Next() {
		var (
			a              pricing.AddOn
			flatCents      int64
			perPersonCents int64
			tastingCents   int64
		)
		if err := rows.Scan(&a.Code, &a.Label, &flatCents, &perPersonCents, &a.WineryStop, &tastingCents); err != nil {
			return nil, repository.MapPgErr("failed to scan add-on", err)
		}
		a.Flat = pricing.Cents(flatCents)
		a.PerPerson = pricing.Cents(perPersonCents)
		a.TastingFeePerGuest = pricing.Cents(tastingCents)
		addOns[a.Code] = a
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgErr("failed to iterate add-ons", err)
	}
	return addOns, nil
}
