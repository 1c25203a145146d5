package request

import (
	"errors"
	"time"

	"renovecare/internal/domain/user"

	"github.com/google/uuid"
)

var (
	ErrAlreadyClaimed  = errors.New("request is already claimed")
	ErrPriceAlreadySet = errors.New("price is already locked")
	ErrPriceNotSet     = errors.New("price has not been locked")
	ErrNegativePrice   = errors.New("price cannot be negative")
)

// Request is the tagged-union entity covering prescription, exam and
// consultation flows. One transition table (transitions.go) governs all
// variants; the variant only selects the payload shape and pricing subtype.
type Request struct {
	id               uuid.UUID
	variant          Variant
	patientID        uuid.UUID
	assignedNurseID  *uuid.UUID
	assignedDoctorID *uuid.UUID
	status           Status
	payload          Payload
	priceCents       *int64
	pricingVersionID *uuid.UUID
	rejectionReason  *RejectionReason

	createdAt   time.Time
	claimedAt   *time.Time
	approvedAt  *time.Time
	paidAt      *time.Time
	signedAt    *time.Time
	deliveredAt *time.Time
}

func NewRequest(variant Variant, patientID uuid.UUID, payload Payload, now time.Time) (*Request, error) {
	if !variant.IsValid() {
		return nil, ErrInvalidPayload
	}
	if err := payload.Validate(variant); err != nil {
		return nil, err
	}
	if variant == VariantConsultation && payload.DurationMinutes == 0 {
		payload.DurationMinutes = DefaultConsultationMinutes
	}
	return &Request{
		id:        uuid.New(),
		variant:   variant,
		patientID: patientID,
		status:    StatusSubmitted,
		payload:   payload,
		createdAt: now,
	}, nil
}

func ReconstructRequest(
	id uuid.UUID,
	variant Variant,
	patientID uuid.UUID,
	assignedNurseID, assignedDoctorID *uuid.UUID,
	status Status,
	payload Payload,
	priceCents *int64,
	pricingVersionID *uuid.UUID,
	rejectionReason *RejectionReason,
	createdAt time.Time,
	claimedAt, approvedAt, paidAt, signedAt, deliveredAt *time.Time,
) *Request {
	return &Request{
		id:               id,
		variant:          variant,
		patientID:        patientID,
		assignedNurseID:  assignedNurseID,
		assignedDoctorID: assignedDoctorID,
		status:           status,
		payload:          payload,
		priceCents:       priceCents,
		pricingVersionID: pricingVersionID,
		rejectionReason:  rejectionReason,
		createdAt:        createdAt,
		claimedAt:        claimedAt,
		approvedAt:       approvedAt,
		paidAt:           paidAt,
		signedAt:         signedAt,
		deliveredAt:      deliveredAt,
	}
}

// Guard is a snapshot of the fields a conditional write re-verifies. Take
// it before mutating the entity and hand it to the repository alongside the
// mutated state.
type Guard struct {
	Status           Status
	AssignedNurseID  *uuid.UUID
	AssignedDoctorID *uuid.UUID
}

func (r *Request) Guard() Guard {
	return Guard{
		Status:           r.status,
		AssignedNurseID:  r.assignedNurseID,
		AssignedDoctorID: r.assignedDoctorID,
	}
}

// IsAssignee reports whether the actor holds the assignment that gates
// review actions in the current status.
func (r *Request) IsAssignee(actorID uuid.UUID) bool {
	switch r.status {
	case StatusInNursingReview:
		return r.assignedNurseID != nil && *r.assignedNurseID == actorID
	case StatusInReview, StatusPaid:
		return r.assignedDoctorID != nil && *r.assignedDoctorID == actorID
	default:
		return false
	}
}

// Claim takes review ownership. The conditional write against the unset
// assignment column happens in the repository; this validates semantics and
// produces the post-claim state.
func (r *Request) Claim(actorID uuid.UUID, role user.Role, now time.Time) error {
	var target Status
	switch role {
	case user.RoleNurse:
		target = StatusInNursingReview
	case user.RoleDoctor:
		target = StatusInReview
	default:
		return ErrForbiddenRole
	}

	if err := CanTransition(r.status, target, role, false); err != nil {
		return err
	}

	switch role {
	case user.RoleNurse:
		if r.assignedNurseID != nil {
			return ErrAlreadyClaimed
		}
		id := actorID
		r.assignedNurseID = &id
	case user.RoleDoctor:
		if r.assignedDoctorID != nil {
			return ErrAlreadyClaimed
		}
		id := actorID
		r.assignedDoctorID = &id
	}

	r.status = target
	t := now
	r.claimedAt = &t
	return nil
}

// Approve locks the resolved price and moves to approved_pending_payment.
// priceCents and the pricing version both come from the pricing resolver,
// never from a client; the version is captured here so a later payment
// records the exact price list row the locked amount came from.
func (r *Request) Approve(actorID uuid.UUID, role user.Role, priceCents int64, pricingVersionID uuid.UUID, now time.Time) error {
	if err := CanTransition(r.status, StatusApprovedPendingPay, role, r.IsAssignee(actorID)); err != nil {
		return err
	}
	if r.priceCents != nil {
		return ErrPriceAlreadySet
	}
	if priceCents < 0 {
		return ErrNegativePrice
	}

	price := priceCents
	r.priceCents = &price
	version := pricingVersionID
	r.pricingVersionID = &version
	r.status = StatusApprovedPendingPay
	t := now
	r.approvedAt = &t
	return nil
}

func (r *Request) Reject(actorID uuid.UUID, role user.Role, reason RejectionReason, now time.Time) error {
	if err := CanTransition(r.status, StatusRejected, role, r.IsAssignee(actorID)); err != nil {
		return err
	}
	r.rejectionReason = &reason
	r.status = StatusRejected
	return nil
}

// ForwardToDoctor hands a nursing-review request to the medical queue and
// clears the nurse assignment so a doctor can claim it.
func (r *Request) ForwardToDoctor(actorID uuid.UUID, now time.Time) error {
	if err := CanTransition(r.status, StatusForwardedForMedical, user.RoleNurse, r.IsAssignee(actorID)); err != nil {
		return err
	}
	r.assignedNurseID = nil
	r.status = StatusForwardedForMedical
	return nil
}

// MarkPaid is system-invoked by the payment engine. Calling it on an
// already-paid request is a no-op.
func (r *Request) MarkPaid(now time.Time) error {
	if r.status == StatusPaid {
		return nil
	}
	if err := CanTransition(r.status, StatusPaid, RoleSystem, false); err != nil {
		return err
	}
	if r.priceCents == nil {
		return ErrPriceNotSet
	}
	r.status = StatusPaid
	t := now
	r.paidAt = &t
	return nil
}

// Sign moves a paid request to signed. A nurse-approved request reaches
// paid with no doctor attached, so when the column is unset the first
// doctor to sign takes the assignment; the conditional write on the unset
// column arbitrates concurrent signers.
func (r *Request) Sign(actorID uuid.UUID, role user.Role, now time.Time) error {
	takeover := r.status == StatusPaid && role == user.RoleDoctor && r.assignedDoctorID == nil
	if err := CanTransition(r.status, StatusSigned, role, takeover || r.IsAssignee(actorID)); err != nil {
		return err
	}
	if takeover {
		id := actorID
		r.assignedDoctorID = &id
	}
	r.status = StatusSigned
	t := now
	r.signedAt = &t
	return nil
}

func (r *Request) Deliver(now time.Time) error {
	if err := CanTransition(r.status, StatusDelivered, RoleSystem, false); err != nil {
		return err
	}
	r.status = StatusDelivered
	t := now
	r.deliveredAt = &t
	return nil
}

func (r *Request) ID() uuid.UUID                     { return r.id }
func (r *Request) Variant() Variant                  { return r.variant }
func (r *Request) PatientID() uuid.UUID              { return r.patientID }
func (r *Request) AssignedNurseID() *uuid.UUID       { return r.assignedNurseID }
func (r *Request) AssignedDoctorID() *uuid.UUID      { return r.assignedDoctorID }
func (r *Request) Status() Status                    { return r.status }
func (r *Request) Payload() Payload                  { return r.payload }
func (r *Request) PriceCents() *int64                { return r.priceCents }
func (r *Request) PricingVersionID() *uuid.UUID      { return r.pricingVersionID }
func (r *Request) RejectionReason() *RejectionReason { return r.rejectionReason }
func (r *Request) CreatedAt() time.Time              { return r.createdAt }
func (r *Request) ClaimedAt() *time.Time             { return r.claimedAt }
func (r *Request) ApprovedAt() *time.Time            { return r.approvedAt }
func (r *Request) PaidAt() *time.Time                { return r.paidAt }
func (r *Request) SignedAt() *time.Time              { return r.signedAt }
func (r *Request) DeliveredAt() *time.Time           { return r.deliveredAt }
