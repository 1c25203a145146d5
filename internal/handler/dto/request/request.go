package request

import (
	domain "renovecare/internal/domain/request"
)

type MedicationPayload struct {
	Name      string `json:"name" binding:"required"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// CreateRequestRequest is the submission body. Only the fields for the
// chosen variant are read; the rest are ignored. Price fields are not
// accepted here at all, pricing is server-side only.
type CreateRequestRequest struct {
	Variant string `json:"variant" binding:"required,oneof=prescription exam consultation"`

	PrescriptionType string              `json:"prescription_type"`
	Medications      []MedicationPayload `json:"medications"`

	ExamType string   `json:"exam_type"`
	Exams    []string `json:"exams"`

	Specialty       string `json:"specialty"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (r *CreateRequestRequest) ToPayload() domain.Payload {
	meds := make([]domain.Medication, len(r.Medications))
	for i, m := range r.Medications {
		meds[i] = domain.Medication{Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency}
	}
	return domain.Payload{
		PrescriptionType: domain.PrescriptionType(r.PrescriptionType),
		Medications:      meds,
		ExamType:         domain.ExamType(r.ExamType),
		Exams:            r.Exams,
		Specialty:        r.Specialty,
		DurationMinutes:  r.DurationMinutes,
	}
}

// StatusActionRequest names the lifecycle action to run on a request.
type StatusActionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject forward sign deliver"`
	Reason string `json:"reason"`
}
