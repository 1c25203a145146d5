package request

import (
	"errors"
	"strings"
)

var (
	ErrEmptyReason    = errors.New("rejection reason is required")
	ErrInvalidPayload = errors.New("invalid variant payload")
)

type PrescriptionType string

const (
	PrescriptionSimple     PrescriptionType = "simple"
	PrescriptionControlled PrescriptionType = "controlled"
	PrescriptionBlue       PrescriptionType = "blue"
)

func (t PrescriptionType) IsValid() bool {
	switch t {
	case PrescriptionSimple, PrescriptionControlled, PrescriptionBlue:
		return true
	default:
		return false
	}
}

type ExamType string

const (
	ExamLaboratory ExamType = "laboratory"
	ExamImaging    ExamType = "imaging"
)

func (t ExamType) IsValid() bool {
	switch t {
	case ExamLaboratory, ExamImaging:
		return true
	default:
		return false
	}
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
}

// Payload carries the variant-specific fields of a request. Exactly the
// fields for the request's variant are populated; the rest stay zero.
type Payload struct {
	PrescriptionType PrescriptionType `json:"prescription_type,omitempty"`
	Medications      []Medication     `json:"medications,omitempty"`

	ExamType ExamType `json:"exam_type,omitempty"`
	Exams    []string `json:"exams,omitempty"`

	Specialty       string `json:"specialty,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// DefaultConsultationMinutes applies when a consultation request omits a
// duration.
const DefaultConsultationMinutes = 15

func (p Payload) Validate(variant Variant) error {
	switch variant {
	case VariantPrescription:
		if !p.PrescriptionType.IsValid() || len(p.Medications) == 0 {
			return ErrInvalidPayload
		}
		for _, m := range p.Medications {
			if strings.TrimSpace(m.Name) == "" {
				return ErrInvalidPayload
			}
		}
	case VariantExam:
		if !p.ExamType.IsValid() || len(p.Exams) == 0 {
			return ErrInvalidPayload
		}
	case VariantConsultation:
		if p.DurationMinutes < 0 {
			return ErrInvalidPayload
		}
	default:
		return ErrInvalidPayload
	}
	return nil
}

// ServiceSubtype maps the payload onto the pricing subtype dimension.
// Consultation subtypes are classified from the free-text specialty by the
// pricing resolver, so the raw specialty is returned here.
func (p Payload) ServiceSubtype(variant Variant) string {
	switch variant {
	case VariantPrescription:
		return string(p.PrescriptionType)
	case VariantExam:
		return string(p.ExamType)
	case VariantConsultation:
		return p.Specialty
	default:
		return ""
	}
}

type RejectionReason struct {
	value string
}

func NewRejectionReason(s string) (RejectionReason, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return RejectionReason{}, ErrEmptyReason
	}
	return RejectionReason{value: trimmed}, nil
}

func (r RejectionReason) String() string {
	return r.value
}
