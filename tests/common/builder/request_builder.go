//go:build unit || e2e

package builder

import (
	"time"

	domrequest "renovecare/internal/domain/request"
	reqdto "renovecare/internal/handler/dto/request"

	"github.com/google/uuid"
)

type RequestBuilder struct {
	Variant   domrequest.Variant
	PatientID uuid.UUID
	Status    domrequest.Status
	Payload   domrequest.Payload

	NurseID          *uuid.UUID
	DoctorID         *uuid.UUID
	PriceCents       *int64
	PricingVersionID *uuid.UUID

	CreatedAt time.Time
}

// NewRequestBuilder defaults to a freshly submitted laboratory exam request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{
		Variant:   domrequest.VariantExam,
		PatientID: uuid.New(),
		Status:    domrequest.StatusSubmitted,
		Payload: domrequest.Payload{
			ExamType: domrequest.ExamLaboratory,
			Exams:    []string{"hemograma completo"},
		},
		CreatedAt: time.Now(),
	}
}

func (b *RequestBuilder) With(mutate func(*RequestBuilder)) *RequestBuilder {
	mutate(b)
	return b
}

func (b *RequestBuilder) WithPrescription(prescriptionType domrequest.PrescriptionType, medications ...domrequest.Medication) *RequestBuilder {
	b.Variant = domrequest.VariantPrescription
	b.Payload = domrequest.Payload{
		PrescriptionType: prescriptionType,
		Medications:      medications,
	}
	return b
}

func (b *RequestBuilder) WithConsultation(specialty string, minutes int) *RequestBuilder {
	b.Variant = domrequest.VariantConsultation
	b.Payload = domrequest.Payload{
		Specialty:       specialty,
		DurationMinutes: minutes,
	}
	return b
}

func (b *RequestBuilder) WithStatus(status domrequest.Status) *RequestBuilder {
	b.Status = status
	return b
}

func (b *RequestBuilder) WithNurse(id uuid.UUID) *RequestBuilder {
	b.NurseID = &id
	return b
}

func (b *RequestBuilder) WithDoctor(id uuid.UUID) *RequestBuilder {
	b.DoctorID = &id
	return b
}

func (b *RequestBuilder) WithPrice(cents int64) *RequestBuilder {
	b.PriceCents = &cents
	return b
}

func (b *RequestBuilder) WithPricingVersion(id uuid.UUID) *RequestBuilder {
	b.PricingVersionID = &id
	return b
}

// BuildDomain runs the submission constructor, so it only produces requests
// in the submitted status and exercises payload validation.
func (b *RequestBuilder) BuildDomain() (*domrequest.Request, error) {
	return domrequest.NewRequest(b.Variant, b.PatientID, b.Payload, b.CreatedAt)
}

// Reconstruct bypasses the constructor to place a request in any lifecycle
// state, the way the repository rehydrates rows.
func (b *RequestBuilder) Reconstruct() *domrequest.Request {
	return domrequest.ReconstructRequest(
		uuid.New(),
		b.Variant,
		b.PatientID,
		b.NurseID,
		b.DoctorID,
		b.Status,
		b.Payload,
		b.PriceCents,
		b.PricingVersionID,
		nil,
		b.CreatedAt,
		nil, nil, nil, nil, nil,
	)
}

func (b *RequestBuilder) BuildCreateRequestDTO() reqdto.CreateRequestRequest {
	meds := make([]reqdto.MedicationPayload, len(b.Payload.Medications))
	for i, m := range b.Payload.Medications {
		meds[i] = reqdto.MedicationPayload{Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency}
	}
	return reqdto.CreateRequestRequest{
		Variant:          b.Variant.String(),
		PrescriptionType: string(b.Payload.PrescriptionType),
		Medications:      meds,
		ExamType:         string(b.Payload.ExamType),
		Exams:            b.Payload.Exams,
		Specialty:        b.Payload.Specialty,
		DurationMinutes:  b.Payload.DurationMinutes,
	}
}
