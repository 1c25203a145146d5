package pricing

import (
	"context"
	"errors"
	"math"
	"time"

	"renovecare/internal/domain/request"

	"github.com/google/uuid"
)

var (
	ErrPriceNotFound = errors.New("no active price for service")
	ErrInvalidInput  = errors.New("invalid pricing input")
)

// Record is one versioned price list entry. At most one record is active per
// (service type, subtype) at any instant; resolution always reads the
// currently active record.
type Record struct {
	ID             uuid.UUID
	ServiceType    string
	ServiceSubtype string
	PriceCents     int64
	ValidFrom      time.Time
	Active         bool
}

// Source reads the single active record for a (service type, subtype) pair.
// Implementations must not serve cached rows.
type Source interface {
	ActiveRecord(ctx context.Context, serviceType, serviceSubtype string) (*Record, error)
}

// Quote is a resolved, server-computed price. Clients never supply amounts;
// any upstream amount field is ignored.
type Quote struct {
	PriceCents       int64
	ServiceSubtype   string
	PricingVersionID uuid.UUID
}

type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// ResolvePrice returns the canonical price for a request's variant and
// payload. Prescription and exam prices are flat per subtype. Consultation
// prices are a per-minute rate multiplied by the requested duration, rounded
// half-up to the nearest cent; the rounding rule is load-bearing since it
// determines charged amounts (see RoundHalfUpCents and its tests).
func (r *Resolver) ResolvePrice(ctx context.Context, variant request.Variant, payload request.Payload) (*Quote, error) {
	switch variant {
	case request.VariantPrescription, request.VariantExam:
		subtype := payload.ServiceSubtype(variant)
		if subtype == "" {
			return nil, ErrInvalidInput
		}
		rec, err := r.source.ActiveRecord(ctx, variant.String(), subtype)
		if err != nil {
			return nil, err
		}
		return &Quote{
			PriceCents:       rec.PriceCents,
			ServiceSubtype:   subtype,
			PricingVersionID: rec.ID,
		}, nil

	case request.VariantConsultation:
		return r.resolveConsultation(ctx, payload)

	default:
		return nil, ErrInvalidInput
	}
}

func (r *Resolver) resolveConsultation(ctx context.Context, payload request.Payload) (*Quote, error) {
	minutes := payload.DurationMinutes
	if minutes <= 0 {
		minutes = request.DefaultConsultationMinutes
	}

	subtype := ClassifySpecialty(payload.Specialty)

	rec, err := r.source.ActiveRecord(ctx, request.VariantConsultation.String(), subtype)
	if err != nil {
		if !errors.Is(err, ErrPriceNotFound) || subtype == SubtypeDefault {
			return nil, err
		}
		// Specialty bucket has no active price; the default bucket backs it.
		rec, err = r.source.ActiveRecord(ctx, request.VariantConsultation.String(), SubtypeDefault)
		if err != nil {
			return nil, err
		}
	}

	total := RoundHalfUpCents(float64(rec.PriceCents) * float64(minutes))
	return &Quote{
		PriceCents:       total,
		ServiceSubtype:   subtype,
		PricingVersionID: rec.ID,
	}, nil
}

// RoundHalfUpCents rounds to the nearest cent with ties going up
// (e.g. 0.5 -> 1, 1.5 -> 2, -0.5 -> 0). math.Round ties away from zero,
// which differs for negative inputs, so the rule is spelled out here.
func RoundHalfUpCents(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
