//go:build unit

package request_test

import (
	"testing"

	"renovecare/internal/domain/request"
	"renovecare/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitionCase struct {
	name       string
	from       request.Status
	to         request.Status
	role       user.Role
	isAssignee bool
	errIs      error
}

func runTransitionCases(t *testing.T, cases []transitionCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := request.CanTransition(c.from, c.to, c.role, c.isAssignee)
			if c.errIs == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, c.errIs)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	t.Run("claiming", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name: "nurse claims a submitted request",
				from: request.StatusSubmitted, to: request.StatusInNursingReview,
				role: user.RoleNurse,
			},
			{
				name: "doctor claims a submitted request directly",
				from: request.StatusSubmitted, to: request.StatusInReview,
				role: user.RoleDoctor,
			},
			{
				name: "doctor claims a forwarded request",
				from: request.StatusForwardedForMedical, to: request.StatusInReview,
				role: user.RoleDoctor,
			},
			{
				name: "patient cannot claim",
				from: request.StatusSubmitted, to: request.StatusInNursingReview,
				role: user.RolePatient, errIs: request.ErrForbiddenRole,
			},
			{
				name: "doctor cannot enter the nursing queue",
				from: request.StatusSubmitted, to: request.StatusInNursingReview,
				role: user.RoleDoctor, errIs: request.ErrForbiddenRole,
			},
			{
				name: "nurse cannot claim a forwarded request",
				from: request.StatusForwardedForMedical, to: request.StatusInReview,
				role: user.RoleNurse, errIs: request.ErrForbiddenRole,
			},
		})
	})

	t.Run("review outcomes", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name: "assigned nurse approves",
				from: request.StatusInNursingReview, to: request.StatusApprovedPendingPay,
				role: user.RoleNurse, isAssignee: true,
			},
			{
				name: "unassigned nurse cannot approve",
				from: request.StatusInNursingReview, to: request.StatusApprovedPendingPay,
				role: user.RoleNurse, errIs: request.ErrNotAssigned,
			},
			{
				name: "assigned doctor approves",
				from: request.StatusInReview, to: request.StatusApprovedPendingPay,
				role: user.RoleDoctor, isAssignee: true,
			},
			{
				name: "assigned nurse forwards to the medical queue",
				from: request.StatusInNursingReview, to: request.StatusForwardedForMedical,
				role: user.RoleNurse, isAssignee: true,
			},
			{
				name: "assigned nurse rejects",
				from: request.StatusInNursingReview, to: request.StatusRejected,
				role: user.RoleNurse, isAssignee: true,
			},
			{
				name: "admin rejects during nursing review",
				from: request.StatusInNursingReview, to: request.StatusRejected,
				role: user.RoleAdmin, isAssignee: true,
			},
			{
				name: "doctor rejects a forwarded request without claiming",
				from: request.StatusForwardedForMedical, to: request.StatusRejected,
				role: user.RoleDoctor,
			},
			{
				name: "nurse cannot reject within medical review",
				from: request.StatusInReview, to: request.StatusRejected,
				role: user.RoleNurse, isAssignee: true, errIs: request.ErrForbiddenRole,
			},
		})
	})

	t.Run("payment and fulfillment", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name: "payment engine marks paid",
				from: request.StatusApprovedPendingPay, to: request.StatusPaid,
				role: request.RoleSystem,
			},
			{
				name: "no end-user role marks paid",
				from: request.StatusApprovedPendingPay, to: request.StatusPaid,
				role: user.RoleAdmin, errIs: request.ErrForbiddenRole,
			},
			{
				name: "assigned doctor signs a paid request",
				from: request.StatusPaid, to: request.StatusSigned,
				role: user.RoleDoctor, isAssignee: true,
			},
			{
				name: "unassigned doctor cannot sign",
				from: request.StatusPaid, to: request.StatusSigned,
				role: user.RoleDoctor, errIs: request.ErrNotAssigned,
			},
			{
				name: "delivery is system only",
				from: request.StatusSigned, to: request.StatusDelivered,
				role: request.RoleSystem,
			},
			{
				name: "doctor cannot deliver",
				from: request.StatusSigned, to: request.StatusDelivered,
				role: user.RoleDoctor, errIs: request.ErrForbiddenRole,
			},
		})
	})

	t.Run("unknown edges", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name: "skipping review entirely",
				from: request.StatusSubmitted, to: request.StatusApprovedPendingPay,
				role: user.RoleNurse, errIs: request.ErrInvalidTransition,
			},
			{
				name: "paying before approval",
				from: request.StatusSubmitted, to: request.StatusPaid,
				role: request.RoleSystem, errIs: request.ErrInvalidTransition,
			},
			{
				name: "signing before payment",
				from: request.StatusApprovedPendingPay, to: request.StatusSigned,
				role: user.RoleDoctor, isAssignee: true, errIs: request.ErrInvalidTransition,
			},
		})
	})

	t.Run("terminal immutability", func(t *testing.T) {
		targets := []request.Status{
			request.StatusSubmitted,
			request.StatusInNursingReview,
			request.StatusInReview,
			request.StatusApprovedPendingPay,
			request.StatusPaid,
			request.StatusSigned,
			request.StatusDelivered,
			request.StatusRejected,
		}
		for _, terminal := range []request.Status{request.StatusDelivered, request.StatusRejected} {
			for _, target := range targets {
				err := request.CanTransition(terminal, target, user.RoleAdmin, true)
				assert.ErrorIs(t, err, request.ErrTerminalState, "from %s to %s", terminal, target)
			}
		}
	})
}

func TestReachableFrom(t *testing.T) {
	t.Run("submitted fans out to both review queues", func(t *testing.T) {
		out := request.ReachableFrom(request.StatusSubmitted)
		assert.ElementsMatch(t, []request.Status{request.StatusInNursingReview, request.StatusInReview}, out)
	})

	t.Run("terminal statuses reach nothing", func(t *testing.T) {
		assert.Empty(t, request.ReachableFrom(request.StatusDelivered))
		assert.Empty(t, request.ReachableFrom(request.StatusRejected))
	})
}
