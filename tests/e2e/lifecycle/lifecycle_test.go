//go:build e2e

package lifecycle_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	stdhttptest "net/http/httptest"
	"sync"
	"testing"

	"renovecare/internal/domain/request"
	"renovecare/internal/domain/user"
	reqdto "renovecare/internal/handler/dto/request"
	"renovecare/internal/handler/dto/response"
	"renovecare/tests/common/httptest"
	"renovecare/tests/e2e"
	authHelper "renovecare/tests/e2e/common/helper"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const requestsURL = "/api/requests"

type lifecycleSuite struct {
	e2e.SharedSuite
	auth *authHelper.AuthHelper
}

func TestLifecycleSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(lifecycleSuite))
}

func (s *lifecycleSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.auth = authHelper.NewAuthHelper(s.DB, s.Config.JWT)
}

type actors struct {
	patient string
	nurse   string
	doctor  string
	admin   string
}

func (s *lifecycleSuite) loginActors() actors {
	t := s.T()
	return actors{
		patient: s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient)),
		nurse:   s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse)),
		doctor:  s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "medico@example.com", string(user.RoleDoctor)),
		admin:   s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "admin@example.com", string(user.RoleAdmin)),
	}
}

func (s *lifecycleSuite) submitLabExam(token string) response.RequestResponse {
	t := s.T()

	body := reqdto.CreateRequestRequest{
		Variant:  string(request.VariantExam),
		ExamType: "laboratory",
		Exams:    []string{"hemograma completo"},
	}
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, requestsURL, body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created response.RequestResponse
	httptest.DecodeResponseBody(t, w.Body, &created)
	require.Equal(t, request.StatusSubmitted.String(), created.Status)
	require.Nil(t, created.PriceCents, "price must not exist before review")
	return created
}

func (s *lifecycleSuite) applyAction(token string, requestID fmt.Stringer, action, reason string, wantCode int) response.RequestResponse {
	t := s.T()

	body := reqdto.StatusActionRequest{Action: action, Reason: reason}
	w := httptest.PerformRequest(t, s.Router, http.MethodPost,
		requestsURL+"/"+requestID.String()+"/status", body, token)
	require.Equal(t, wantCode, w.Code, w.Body.String())

	var res response.RequestResponse
	if wantCode == http.StatusOK {
		httptest.DecodeResponseBody(t, w.Body, &res)
	}
	return res
}

func (s *lifecycleSuite) claim(token string, requestID fmt.Stringer, wantCode int) response.RequestResponse {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodPost,
		requestsURL+"/"+requestID.String()+"/claim", nil, token)
	require.Equal(t, wantCode, w.Code, w.Body.String())

	var res response.RequestResponse
	if wantCode == http.StatusOK {
		httptest.DecodeResponseBody(t, w.Body, &res)
	}
	return res
}

func (s *lifecycleSuite) TestNursingApprovalFlow() {
	s.Run("nurse claims, approves and the locked price is server-side", func() {
		t := s.T()
		a := s.loginActors()

		created := s.submitLabExam(a.patient)

		claimed := s.claim(a.nurse, created.ID, http.StatusOK)
		require.Equal(t, request.StatusInNursingReview.String(), claimed.Status)
		require.NotNil(t, claimed.AssignedNurseID)

		approved := s.applyAction(a.nurse, created.ID, "approve", "", http.StatusOK)
		require.Equal(t, request.StatusApprovedPendingPay.String(), approved.Status)
		require.NotNil(t, approved.PriceCents)
		require.Equal(t, int64(3990), *approved.PriceCents)
		require.NotNil(t, approved.ApprovedAt)

		// A second approve cannot rewrite the locked price.
		s.applyAction(a.nurse, created.ID, "approve", "", http.StatusUnprocessableEntity)

		got := s.getRequest(a.patient, created.ID)
		require.Equal(t, int64(3990), *got.PriceCents)
	})

	s.Run("second claimer loses", func() {
		t := s.T()
		a := s.loginActors()
		rival := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira2@example.com", string(user.RoleNurse))

		created := s.submitLabExam(a.patient)

		winner := s.claim(a.nurse, created.ID, http.StatusOK)
		s.claim(rival, created.ID, http.StatusUnprocessableEntity)

		// The winner keeps the assignment.
		got := s.getRequest(a.nurse, created.ID)
		require.Equal(t, *winner.AssignedNurseID, *got.AssignedNurseID)
	})

	s.Run("simultaneous claims elect exactly one reviewer", func() {
		t := s.T()
		a := s.loginActors()

		const claimers = 6
		tokens := make([]string, claimers)
		for i := range claimers {
			email := fmt.Sprintf("enfermeira%d@example.com", i+1)
			tokens[i] = s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, email, string(user.RoleNurse))
		}

		created := s.submitLabExam(a.patient)
		url := requestsURL + "/" + created.ID.String() + "/claim"

		codes := make([]int, claimers)
		bodies := make([][]byte, claimers)

		var wg sync.WaitGroup
		for i := range claimers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := stdhttptest.NewRequest(http.MethodPost, url, nil)
				req.Header.Set("Authorization", "Bearer "+tokens[i])
				w := stdhttptest.NewRecorder()
				s.Router.ServeHTTP(w, req)
				codes[i] = w.Code
				bodies[i] = w.Body.Bytes()
			}()
		}
		wg.Wait()

		// The conditional write lets exactly one claim through. Losers see a
		// conflict, or an invalid transition if they loaded after the winner.
		winners := 0
		var winnerBody response.RequestResponse
		for i, code := range codes {
			switch code {
			case http.StatusOK:
				winners++
				require.NoError(t, json.Unmarshal(bodies[i], &winnerBody))
			case http.StatusConflict, http.StatusUnprocessableEntity:
			default:
				t.Fatalf("unexpected claim status %d: %s", code, bodies[i])
			}
		}
		require.Equal(t, 1, winners)

		require.NotNil(t, winnerBody.AssignedNurseID)
		got := s.getRequest(a.patient, created.ID)
		require.Equal(t, request.StatusInNursingReview.String(), got.Status)
		require.Equal(t, *winnerBody.AssignedNurseID, *got.AssignedNurseID)
	})

	s.Run("only the assigned nurse may decide", func() {
		a := s.loginActors()
		rival := s.auth.CreateAndLoginWithDB(s.T(), s.DB, s.Router, "enfermeira2@example.com", string(user.RoleNurse))

		created := s.submitLabExam(a.patient)
		s.claim(a.nurse, created.ID, http.StatusOK)

		s.applyAction(rival, created.ID, "approve", "", http.StatusForbidden)
	})
}

func (s *lifecycleSuite) TestRejectionFlow() {
	s.Run("forwarded request rejected with a recorded reason", func() {
		t := s.T()
		a := s.loginActors()

		created := s.submitLabExam(a.patient)

		s.claim(a.nurse, created.ID, http.StatusOK)

		forwarded := s.applyAction(a.nurse, created.ID, "forward", "", http.StatusOK)
		require.Equal(t, request.StatusForwardedForMedical.String(), forwarded.Status)
		require.Nil(t, forwarded.AssignedNurseID, "forwarding releases the nurse assignment")

		claimed := s.claim(a.doctor, created.ID, http.StatusOK)
		require.Equal(t, request.StatusInReview.String(), claimed.Status)

		rejected := s.applyAction(a.doctor, created.ID, "reject", "exam fora do protocolo", http.StatusOK)
		require.Equal(t, request.StatusRejected.String(), rejected.Status)
		require.NotNil(t, rejected.RejectionReason)
		require.Equal(t, "exam fora do protocolo", *rejected.RejectionReason)

		// Terminal, nothing moves it anymore.
		s.applyAction(a.doctor, created.ID, "approve", "", http.StatusConflict)
		s.claim(a.nurse, created.ID, http.StatusConflict)
	})

	s.Run("rejection without a reason is refused", func() {
		a := s.loginActors()

		created := s.submitLabExam(a.patient)
		s.claim(a.nurse, created.ID, http.StatusOK)

		s.applyAction(a.nurse, created.ID, "reject", "", http.StatusBadRequest)
		s.applyAction(a.nurse, created.ID, "reject", "   ", http.StatusBadRequest)
	})
}

func (s *lifecycleSuite) TestVisibilityScoping() {
	s.Run("patients see their own requests only", func() {
		t := s.T()
		a := s.loginActors()
		stranger := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "outro@example.com", string(user.RolePatient))

		created := s.submitLabExam(a.patient)

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, requestsURL+"/"+created.ID.String(), nil, stranger)
		require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

		got := s.getRequest(a.patient, created.ID)
		require.Equal(t, created.ID, got.ID)
	})

	s.Run("reviewers see the submitted queue", func() {
		t := s.T()
		a := s.loginActors()

		created := s.submitLabExam(a.patient)

		w := httptest.PerformRequest(t, s.Router, http.MethodGet, requestsURL, nil, a.nurse)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var items []response.RequestListResponse
		httptest.DecodeResponseBody(t, w.Body, &items)
		require.Len(t, items, 1)
		require.Equal(t, created.ID, items[0].ID)
	})
}

func (s *lifecycleSuite) TestRoleGates() {
	s.Run("patients may not claim or decide", func() {
		t := s.T()
		a := s.loginActors()

		created := s.submitLabExam(a.patient)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			requestsURL+"/"+created.ID.String()+"/claim", nil, a.patient)
		require.Equal(t, http.StatusForbidden, w.Code)

		s.claim(a.nurse, created.ID, http.StatusOK)
		s.applyAction(a.admin, created.ID, "deliver", "", http.StatusUnprocessableEntity)
	})

	s.Run("reviewers may not submit requests", func() {
		t := s.T()
		a := s.loginActors()

		body := reqdto.CreateRequestRequest{
			Variant:  string(request.VariantExam),
			ExamType: "laboratory",
			Exams:    []string{"hemograma completo"},
		}
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, requestsURL, body, a.nurse)
		require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	})
}

func (s *lifecycleSuite) TestPayloadValidation() {
	s.Run("payload must match the variant", func() {
		t := s.T()
		a := s.loginActors()

		body := reqdto.CreateRequestRequest{
			Variant: string(request.VariantExam),
			// exam fields missing entirely
		}
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, requestsURL, body, a.patient)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})

	s.Run("unknown variant is a binding error", func() {
		t := s.T()
		a := s.loginActors()

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, requestsURL,
			map[string]any{"variant": "surgery"}, a.patient)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})
}

func (s *lifecycleSuite) getRequest(token string, id fmt.Stringer) response.RequestResponse {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, requestsURL+"/"+id.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res response.RequestResponse
	httptest.DecodeResponseBody(t, w.Body, &res)
	return res
}
