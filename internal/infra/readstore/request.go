package readstore

import (
	"context"
	"encoding/json"

	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"
	"renovecare/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type RequestReadStore struct {
	db db.DBTX
}

func NewRequestReadStore(dbtx db.DBTX) *RequestReadStore {
	return &RequestReadStore{db: dbtx}
}

const selectRequestViewSQL = `
SELECT id, variant, patient_id, assigned_nurse_id, assigned_doctor_id,
       status, payload, price_cents, rejection_reason,
       created_at, claimed_at, approved_at, paid_at, signed_at, delivered_at
FROM requests`

// FindByIDFor applies role scoping in the query itself: patients see their
// own requests, reviewers see requests they hold or that sit in their queue,
// admin sees everything. A request outside the actor's scope reads as not
// found, deliberately indistinguishable from a missing row.
func (s *RequestReadStore) FindByIDFor(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*queries.RequestView, error) {
	sql := selectRequestViewSQL + ` WHERE id = $1`
	args := []any{id}

	switch role {
	case user.RolePatient:
		sql += ` AND patient_id = $2`
		args = append(args, actorID)
	case user.RoleNurse:
		sql += ` AND (assigned_nurse_id = $2 OR status = 'submitted')`
		args = append(args, actorID)
	case user.RoleDoctor:
		sql += ` AND (assigned_doctor_id = $2 OR status IN ('submitted', 'forwarded_for_medical_review'))`
		args = append(args, actorID)
	case user.RoleAdmin:
		// unrestricted
	default:
		return nil, infra.WrapRepoErr("request not found", nil, infra.KindNotFound)
	}

	return s.scanOne(ctx, sql, args...)
}

func (s *RequestReadStore) ListForPatient(ctx context.Context, patientID uuid.UUID, limit int32) ([]*queries.RequestListItem, error) {
	sql := selectRequestViewSQL + ` WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`
	return s.scanList(ctx, sql, patientID, limit)
}

// ListQueueFor returns the claimable backlog for a reviewing role plus the
// actor's own in-flight work.
func (s *RequestReadStore) ListQueueFor(ctx context.Context, actorID uuid.UUID, role user.Role, limit int32) ([]*queries.RequestListItem, error) {
	var sql string
	switch role {
	case user.RoleNurse:
		sql = selectRequestViewSQL + ` WHERE status = 'submitted' OR assigned_nurse_id = $1 ORDER BY created_at ASC LIMIT $2`
	case user.RoleDoctor:
		sql = selectRequestViewSQL + ` WHERE status IN ('submitted', 'forwarded_for_medical_review') OR assigned_doctor_id = $1 ORDER BY created_at ASC LIMIT $2`
	case user.RoleAdmin:
		sql = selectRequestViewSQL + ` WHERE $1::uuid IS NOT NULL ORDER BY created_at DESC LIMIT $2`
	default:
		return nil, infra.WrapRepoErr("queue not available for role", nil, infra.KindNotFound)
	}
	return s.scanList(ctx, sql, actorID, limit)
}

func (s *RequestReadStore) scanOne(ctx context.Context, sql string, args ...any) (*queries.RequestView, error) {
	view, err := scanRequestRow(s.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("request not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get request view", err)
	}
	return view, nil
}

func (s *RequestReadStore) scanList(ctx context.Context, sql string, args ...any) ([]*queries.RequestListItem, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list requests", err)
	}
	defer rows.Close()

	var out []*queries.RequestListItem
	for rows.Next() {
		view, err := scanRequestRow(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan request row", err)
		}
		out = append(out, &queries.RequestListItem{
			ID:         view.ID,
			Variant:    view.Variant,
			Status:     view.Status,
			PriceCents: view.PriceCents,
			CreatedAt:  view.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate request rows", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequestRow(row rowScanner) (*queries.RequestView, error) {
	var (
		id          uuid.UUID
		variant     string
		patientID   uuid.UUID
		nurseID     pgtype.UUID
		doctorID    pgtype.UUID
		status      string
		rawPayload  []byte
		priceCents  pgtype.Int8
		reason      pgtype.Text
		createdAt   pgtype.Timestamptz
		claimedAt   pgtype.Timestamptz
		approvedAt  pgtype.Timestamptz
		paidAt      pgtype.Timestamptz
		signedAt    pgtype.Timestamptz
		deliveredAt pgtype.Timestamptz
	)

	err := row.Scan(&id, &variant, &patientID, &nurseID, &doctorID,
		&status, &rawPayload, &priceCents, &reason,
		&createdAt, &claimedAt, &approvedAt, &paidAt, &signedAt, &deliveredAt)
	if err != nil {
		return nil, err
	}

	var payload json.RawMessage = rawPayload

	return &queries.RequestView{
		ID:               id,
		Variant:          variant,
		PatientID:        patientID,
		AssignedNurseID:  pgconv.UUIDPtrFromPgtype(nurseID),
		AssignedDoctorID: pgconv.UUIDPtrFromPgtype(doctorID),
		Status:           status,
		Payload:          payload,
		PriceCents:       pgconv.Int64PtrFromPgtype(priceCents),
		RejectionReason:  pgconv.StringPtrFromPgtype(reason),
		CreatedAt:        pgconv.TimeFromPgtype(createdAt),
		ClaimedAt:        pgconv.TimePtrFromPgtype(claimedAt),
		ApprovedAt:       pgconv.TimePtrFromPgtype(approvedAt),
		PaidAt:           pgconv.TimePtrFromPgtype(paidAt),
		SignedAt:         pgconv.TimePtrFromPgtype(signedAt),
		DeliveredAt:      pgconv.TimePtrFromPgtype(deliveredAt),
	}, nil
}
