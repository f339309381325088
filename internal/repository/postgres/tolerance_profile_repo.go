package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

type toleranceProfileRepo struct {
	db *sqlx.DB
}

// NewToleranceProfileRepo creates a new PostgreSQL-backed
// ToleranceProfileRepository.
func NewToleranceProfileRepo(db *sqlx.DB) port.ToleranceProfileRepository {
	return &toleranceProfileRepo{db: db}
}

func (r *toleranceProfileRepo) Upsert(ctx context.Context, profile *domain.ToleranceProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := `INSERT INTO tolerance_profiles (
		venue_id, date_window_days, amount_proximity_pct,
		qty_tol_rel, qty_tol_abs, price_tol_rel, fuzzy_desc_threshold,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (venue_id) DO UPDATE SET
		date_window_days = EXCLUDED.date_window_days,
		amount_proximity_pct = EXCLUDED.amount_proximity_pct,
		qty_tol_rel = EXCLUDED.qty_tol_rel,
		qty_tol_abs = EXCLUDED.qty_tol_abs,
		price_tol_rel = EXCLUDED.price_tol_rel,
		fuzzy_desc_threshold = EXCLUDED.fuzzy_desc_threshold,
		updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		profile.VenueID, profile.DateWindowDays, profile.AmountProximityPct,
		profile.QtyTolRel, profile.QtyTolAbs, profile.PriceTolRel, profile.FuzzyDescThreshold,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("toleranceProfileRepo.Upsert: %w", err)
	}
	return nil
}

func (r *toleranceProfileRepo) GetByVenue(ctx context.Context, venueID uuid.UUID) (*domain.ToleranceProfile, error) {
	var profile domain.ToleranceProfile
	err := r.db.GetContext(ctx, &profile,
		"SELECT * FROM tolerance_profiles WHERE venue_id = $1", venueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrToleranceProfileNotFound
		}
		return nil, fmt.Errorf("toleranceProfileRepo.GetByVenue: %w", err)
	}
	return &profile, nil
}
