package repository

import (
	"context"
	"encoding/json"

	"renovecare/internal/domain/request"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type RequestRepository struct{}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{}
}

const insertRequestSQL = `
INSERT INTO requests (
	id, variant, patient_id, status, payload, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, now(), now())`

func (r *RequestRepository) Create(ctx context.Context, dbtx db.DBTX, req *request.Request) error {
	payload, err := json.Marshal(req.Payload())
	if err != nil {
		return infra.WrapRepoErr("failed to encode request payload", err)
	}

	_, err = dbtx.Exec(ctx, insertRequestSQL,
		req.ID(), req.Variant().String(), req.PatientID(), req.Status().String(), payload)
	if err != nil {
		return infra.WrapRepoErr("failed to create request", err)
	}
	return nil
}

const selectRequestSQL = `
SELECT id, variant, patient_id, assigned_nurse_id, assigned_doctor_id,
       status, payload, price_cents, pricing_version_id, rejection_reason,
       created_at, claimed_at, approved_at, paid_at, signed_at, delivered_at
FROM requests
WHERE id = $1`

func (r *RequestRepository) FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*request.Request, error) {
	row := dbtx.QueryRow(ctx, selectRequestSQL, id)

	var (
		reqID       uuid.UUID
		variant     string
		patientID   uuid.UUID
		nurseID     pgtype.UUID
		doctorID    pgtype.UUID
		status      string
		rawPayload  []byte
		priceCents  pgtype.Int8
		versionID   pgtype.UUID
		reason      pgtype.Text
		createdAt   pgtype.Timestamptz
		claimedAt   pgtype.Timestamptz
		approvedAt  pgtype.Timestamptz
		paidAt      pgtype.Timestamptz
		signedAt    pgtype.Timestamptz
		deliveredAt pgtype.Timestamptz
	)

	err := row.Scan(&reqID, &variant, &patientID, &nurseID, &doctorID,
		&status, &rawPayload, &priceCents, &versionID, &reason,
		&createdAt, &claimedAt, &approvedAt, &paidAt, &signedAt, &deliveredAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("request not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get request", err)
	}

	var payload request.Payload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return nil, infra.WrapRepoErr("failed to decode request payload", err)
	}

	var rejection *request.RejectionReason
	if reasonStr := pgconv.StringPtrFromPgtype(reason); reasonStr != nil {
		rr, err := request.NewRejectionReason(*reasonStr)
		if err != nil {
			return nil, infra.WrapRepoErr("stored rejection reason invalid", err)
		}
		rejection = &rr
	}

	return request.ReconstructRequest(
		reqID,
		request.Variant(variant),
		patientID,
		pgconv.UUIDPtrFromPgtype(nurseID),
		pgconv.UUIDPtrFromPgtype(doctorID),
		request.Status(status),
		payload,
		pgconv.Int64PtrFromPgtype(priceCents),
		pgconv.UUIDPtrFromPgtype(versionID),
		rejection,
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimePtrFromPgtype(claimedAt),
		pgconv.TimePtrFromPgtype(approvedAt),
		pgconv.TimePtrFromPgtype(paidAt),
		pgconv.TimePtrFromPgtype(signedAt),
		pgconv.TimePtrFromPgtype(deliveredAt),
	), nil
}

// IS NOT DISTINCT FROM matches NULL assignments, which plain equality cannot.
const updateRequestGuardedSQL = `
UPDATE requests SET
	assigned_nurse_id  = $2,
	assigned_doctor_id = $3,
	status             = $4,
	price_cents        = $5,
	pricing_version_id = $6,
	rejection_reason   = $7,
	claimed_at         = $8,
	approved_at        = $9,
	paid_at            = $10,
	signed_at          = $11,
	delivered_at       = $12,
	updated_at         = now()
WHERE id = $1
  AND status = $13
  AND assigned_nurse_id  IS NOT DISTINCT FROM $14
  AND assigned_doctor_id IS NOT DISTINCT FROM $15`

// UpdateGuarded persists the entity's new state as a single compare-and-swap
// write. The guard re-verifies the status and both assignment fields at
// write time; a lost race surfaces as KindConflict, never as a blind
// overwrite.
func (r *RequestRepository) UpdateGuarded(ctx context.Context, dbtx db.DBTX, req *request.Request, expected request.Guard) error {
	var reason *string
	if rr := req.RejectionReason(); rr != nil {
		s := rr.String()
		reason = &s
	}

	tag, err := dbtx.Exec(ctx, updateRequestGuardedSQL,
		req.ID(),
		pgconv.UUIDPtrToPgtype(req.AssignedNurseID()),
		pgconv.UUIDPtrToPgtype(req.AssignedDoctorID()),
		req.Status().String(),
		pgconv.Int64PtrToPgtype(req.PriceCents()),
		pgconv.UUIDPtrToPgtype(req.PricingVersionID()),
		pgconv.StringPtrToPgtype(reason),
		pgconv.TimePtrToPgtype(req.ClaimedAt()),
		pgconv.TimePtrToPgtype(req.ApprovedAt()),
		pgconv.TimePtrToPgtype(req.PaidAt()),
		pgconv.TimePtrToPgtype(req.SignedAt()),
		pgconv.TimePtrToPgtype(req.DeliveredAt()),
		expected.Status.String(),
		pgconv.UUIDPtrToPgtype(expected.AssignedNurseID),
		pgconv.UUIDPtrToPgtype(expected.AssignedDoctorID),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update request", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("request state changed concurrently", nil, infra.KindConflict)
	}
	return nil
}
