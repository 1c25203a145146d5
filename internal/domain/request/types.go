package request

type Status string

const (
	StatusSubmitted           Status = "submitted"
	StatusInNursingReview     Status = "in_nursing_review"
	StatusInReview            Status = "in_review"
	StatusForwardedForMedical Status = "forwarded_for_medical_review"
	StatusApprovedPendingPay  Status = "approved_pending_payment"
	StatusPaid                Status = "paid"
	StatusSigned              Status = "signed"
	StatusDelivered           Status = "delivered"
	StatusRejected            Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusInNursingReview, StatusInReview,
		StatusForwardedForMedical, StatusApprovedPendingPay,
		StatusPaid, StatusSigned, StatusDelivered, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusRejected
}

// IsReviewState reports whether the request is held by a reviewer.
func (s Status) IsReviewState() bool {
	return s == StatusInNursingReview || s == StatusInReview
}

type Variant string

const (
	VariantPrescription Variant = "prescription"
	VariantExam         Variant = "exam"
	VariantConsultation Variant = "consultation"
)

func (v Variant) String() string {
	return string(v)
}

func (v Variant) IsValid() bool {
	switch v {
	case VariantPrescription, VariantExam, VariantConsultation:
		return true
	default:
		return false
	}
}
