package matching

import (
	"fmt"

	"dockmatch/internal/domain"
)

// Tolerances bundles the allowable deviations for one matching run. Immutable
// once validated; supplied per run from service config or a venue profile.
type Tolerances struct {
	DateWindowDays     int     `json:"date_window_days"`
	AmountProximityPct float64 `json:"amount_proximity_pct"`
	QtyTolRel          float64 `json:"qty_tol_rel"`
	QtyTolAbs          float64 `json:"qty_tol_abs"`
	PriceTolRel        float64 `json:"price_tol_rel"`
	FuzzyDescThreshold float64 `json:"fuzzy_desc_threshold"`
}

// DefaultTolerances returns the service-wide defaults used when a venue has
// no stored profile.
func DefaultTolerances() Tolerances {
	return Tolerances{
		DateWindowDays:     3,
		AmountProximityPct: 5.0,
		QtyTolRel:          0.05,
		QtyTolAbs:          0.0,
		PriceTolRel:        0.02,
		FuzzyDescThreshold: 0.6,
	}
}

// Validate rejects negative tolerances and out-of-range thresholds. A zero
// tolerance means exact-match-only, which is valid.
func (t Tolerances) Validate() error {
	if t.DateWindowDays < 0 {
		return fmt.Errorf("%w: date_window_days must be >= 0, got %d", domain.ErrInvalidTolerances, t.DateWindowDays)
	}
	if t.AmountProximityPct < 0 {
		return fmt.Errorf("%w: amount_proximity_pct must be >= 0, got %g", domain.ErrInvalidTolerances, t.AmountProximityPct)
	}
	if t.QtyTolRel < 0 {
		return fmt.Errorf("%w: qty_tol_rel must be >= 0, got %g", domain.ErrInvalidTolerances, t.QtyTolRel)
	}
	if t.QtyTolAbs < 0 {
		return fmt.Errorf("%w: qty_tol_abs must be >= 0, got %g", domain.ErrInvalidTolerances, t.QtyTolAbs)
	}
	if t.PriceTolRel < 0 {
		return fmt.Errorf("%w: price_tol_rel must be >= 0, got %g", domain.ErrInvalidTolerances, t.PriceTolRel)
	}
	if t.FuzzyDescThreshold < 0 || t.FuzzyDescThreshold > 1 {
		return fmt.Errorf("%w: fuzzy_desc_threshold must be in [0,1], got %g", domain.ErrInvalidTolerances, t.FuzzyDescThreshold)
	}
	return nil
}

// FromProfile maps a stored venue profile onto run tolerances.
func FromProfile(p *domain.ToleranceProfile) Tolerances {
	return Tolerances{
		DateWindowDays:     p.DateWindowDays,
		AmountProximityPct: p.AmountProximityPct,
		QtyTolRel:          p.QtyTolRel,
		QtyTolAbs:          p.QtyTolAbs,
		PriceTolRel:        p.PriceTolRel,
		FuzzyDescThreshold: p.FuzzyDescThreshold,
	}
}
