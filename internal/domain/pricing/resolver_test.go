//go:build unit

package pricing_test

import (
	"context"
	"testing"

	"renovecare/internal/domain/pricing"
	"renovecare/internal/domain/request"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves fixed active records keyed by type/subtype.
type stubSource struct {
	records map[string]*pricing.Record
}

func (s *stubSource) ActiveRecord(_ context.Context, serviceType, serviceSubtype string) (*pricing.Record, error) {
	rec, ok := s.records[serviceType+"/"+serviceSubtype]
	if !ok {
		return nil, pricing.ErrPriceNotFound
	}
	return rec, nil
}

func newStubSource() (*stubSource, map[string]uuid.UUID) {
	ids := map[string]uuid.UUID{}
	records := map[string]*pricing.Record{}
	add := func(serviceType, subtype string, cents int64) {
		id := uuid.New()
		key := serviceType + "/" + subtype
		ids[key] = id
		records[key] = &pricing.Record{
			ID:             id,
			ServiceType:    serviceType,
			ServiceSubtype: subtype,
			PriceCents:     cents,
			Active:         true,
		}
	}
	add("prescription", "simple", 2990)
	add("prescription", "controlled", 4990)
	add("exam", "laboratory", 3990)
	add("exam", "imaging", 14990)
	add("consultation", "default", 250)
	add("consultation", "psychologist", 300)
	return &stubSource{records: records}, ids
}

func TestResolvePrice(t *testing.T) {
	ctx := context.Background()
	source, ids := newStubSource()
	resolver := pricing.NewResolver(source)

	t.Run("flat price per exam subtype", func(t *testing.T) {
		quote, err := resolver.ResolvePrice(ctx, request.VariantExam, request.Payload{
			ExamType: request.ExamLaboratory,
			Exams:    []string{"hemograma completo"},
		})
		require.NoError(t, err)

		want := &pricing.Quote{
			PriceCents:       3990,
			ServiceSubtype:   "laboratory",
			PricingVersionID: ids["exam/laboratory"],
		}
		if diff := cmp.Diff(want, quote); diff != "" {
			t.Errorf("quote mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("flat price per prescription subtype", func(t *testing.T) {
		quote, err := resolver.ResolvePrice(ctx, request.VariantPrescription, request.Payload{
			PrescriptionType: request.PrescriptionControlled,
			Medications:      []request.Medication{{Name: "Clonazepam"}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4990), quote.PriceCents)
		assert.Equal(t, "controlled", quote.ServiceSubtype)
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		payload := request.Payload{ExamType: request.ExamImaging, Exams: []string{"ressonância"}}

		first, err := resolver.ResolvePrice(ctx, request.VariantExam, payload)
		require.NoError(t, err)
		second, err := resolver.ResolvePrice(ctx, request.VariantExam, payload)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("consultation multiplies the per-minute rate", func(t *testing.T) {
		quote, err := resolver.ResolvePrice(ctx, request.VariantConsultation, request.Payload{
			Specialty:       "psicóloga",
			DurationMinutes: 20,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(6000), quote.PriceCents)
		assert.Equal(t, pricing.SubtypePsychologist, quote.ServiceSubtype)
		assert.Equal(t, ids["consultation/psychologist"], quote.PricingVersionID)
	})

	t.Run("consultation without duration bills the default minutes", func(t *testing.T) {
		quote, err := resolver.ResolvePrice(ctx, request.VariantConsultation, request.Payload{})
		require.NoError(t, err)
		assert.Equal(t, int64(250*request.DefaultConsultationMinutes), quote.PriceCents)
		assert.Equal(t, pricing.SubtypeDefault, quote.ServiceSubtype)
	})

	t.Run("unpriced specialty falls back to the default bucket", func(t *testing.T) {
		quote, err := resolver.ResolvePrice(ctx, request.VariantConsultation, request.Payload{
			Specialty:       "clínico geral",
			DurationMinutes: 30,
		})
		require.NoError(t, err)
		// Rate comes from the default record, subtype keeps the classification.
		assert.Equal(t, int64(7500), quote.PriceCents)
		assert.Equal(t, pricing.SubtypeClinician, quote.ServiceSubtype)
		assert.Equal(t, ids["consultation/default"], quote.PricingVersionID)
	})

	t.Run("missing subtype is an input error", func(t *testing.T) {
		_, err := resolver.ResolvePrice(ctx, request.VariantExam, request.Payload{})
		require.ErrorIs(t, err, pricing.ErrInvalidInput)
	})

	t.Run("unknown variant is an input error", func(t *testing.T) {
		_, err := resolver.ResolvePrice(ctx, "surgery", request.Payload{})
		require.ErrorIs(t, err, pricing.ErrInvalidInput)
	})

	t.Run("no active record surfaces as not found", func(t *testing.T) {
		_, err := resolver.ResolvePrice(ctx, request.VariantPrescription, request.Payload{
			PrescriptionType: request.PrescriptionBlue,
			Medications:      []request.Medication{{Name: "Ritalina"}},
		})
		require.ErrorIs(t, err, pricing.ErrPriceNotFound)
	})
}

func TestRoundHalfUpCents(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.5, 2},
		{2.4, 2},
		{2.5, 3},
		{-0.5, 0},
		{-0.6, -1},
		{3749.5, 3750},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, pricing.RoundHalfUpCents(c.in), "input %v", c.in)
	}
}

func TestClassifySpecialty(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"psicóloga", pricing.SubtypePsychologist},
		{"Psicologia", pricing.SubtypePsychologist},
		{"clínico geral", pricing.SubtypeClinician},
		{"Clinica Médica", pricing.SubtypeClinician},
		{"dermatologia", pricing.SubtypeDefault},
		{"", pricing.SubtypeDefault},
		{"   ", pricing.SubtypeDefault},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, pricing.ClassifySpecialty(c.in), "input %q", c.in)
	}
}
