package request

import (
	"errors"

	"renovecare/internal/domain/user"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotAssigned       = errors.New("actor is not the assigned reviewer")
	ErrForbiddenRole     = errors.New("role may not perform this transition")
	ErrTerminalState     = errors.New("request is in a terminal state")
)

// rule describes one edge of the transition graph. A transition is applied
// only when the actor's role is listed and, when assigneeOnly is set, the
// actor currently holds the assignment. System transitions carry no end-user
// role and are invoked by the payment engine or delivery pipeline.
type rule struct {
	roles        []user.Role
	assigneeOnly bool
	system       bool
}

type edge struct {
	from Status
	to   Status
}

// RoleSystem marks transitions no end-user actor may trigger.
const RoleSystem user.Role = "system"

var transitionTable = map[edge]rule{
	// claim
	{StatusSubmitted, StatusInNursingReview}:    {roles: []user.Role{user.RoleNurse}},
	{StatusSubmitted, StatusInReview}:           {roles: []user.Role{user.RoleDoctor}},
	{StatusForwardedForMedical, StatusInReview}: {roles: []user.Role{user.RoleDoctor}},
	// review outcomes
	{StatusInNursingReview, StatusApprovedPendingPay}:  {roles: []user.Role{user.RoleNurse}, assigneeOnly: true},
	{StatusInReview, StatusApprovedPendingPay}:         {roles: []user.Role{user.RoleDoctor}, assigneeOnly: true},
	{StatusInNursingReview, StatusForwardedForMedical}: {roles: []user.Role{user.RoleNurse}, assigneeOnly: true},
	{StatusInNursingReview, StatusRejected}:            {roles: []user.Role{user.RoleNurse, user.RoleAdmin}, assigneeOnly: true},
	{StatusInReview, StatusRejected}:                   {roles: []user.Role{user.RoleDoctor, user.RoleAdmin}, assigneeOnly: true},
	{StatusForwardedForMedical, StatusRejected}:        {roles: []user.Role{user.RoleDoctor, user.RoleAdmin}},
	// payment and fulfillment
	{StatusApprovedPendingPay, StatusPaid}: {system: true},
	{StatusPaid, StatusSigned}:             {roles: []user.Role{user.RoleDoctor}, assigneeOnly: true},
	{StatusSigned, StatusDelivered}:        {system: true},
}

// CanTransition validates one edge of the graph for the given actor.
// isAssignee reports whether the actor currently holds the request's
// assignment field for the reviewing side.
func CanTransition(current, target Status, role user.Role, isAssignee bool) error {
	if current.IsTerminal() {
		return ErrTerminalState
	}

	r, ok := transitionTable[edge{current, target}]
	if !ok {
		return ErrInvalidTransition
	}

	if r.system {
		if role != RoleSystem {
			return ErrForbiddenRole
		}
		return nil
	}

	allowed := false
	for _, candidate := range r.roles {
		if candidate == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrForbiddenRole
	}

	if r.assigneeOnly && !isAssignee {
		return ErrNotAssigned
	}

	return nil
}

// ReachableFrom lists the targets reachable from a status regardless of
// actor. Used by queue views to render available actions.
func ReachableFrom(current Status) []Status {
	var out []Status
	for e := range transitionTable {
		if e.from == current {
			out = append(out, e.to)
		}
	}
	return out
}
