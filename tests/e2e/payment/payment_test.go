//go:build e2e

package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	stdhttptest "net/http/httptest"
	"sync"
	"testing"

	"renovecare/internal/domain/payment"
	"renovecare/internal/domain/request"
	"renovecare/internal/domain/user"
	reqdto "renovecare/internal/handler/dto/request"
	"renovecare/internal/handler/dto/response"
	"renovecare/tests/common/httptest"
	"renovecare/tests/e2e"
	authHelper "renovecare/tests/e2e/common/helper"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	requestsURL = "/api/requests"
	paymentsURL = "/api/payments"
	webhookURL  = "/api/webhooks/payment"
)

type paymentSuite struct {
	e2e.SharedSuite
	auth *authHelper.AuthHelper
}

func TestPaymentSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(paymentSuite))
}

func (s *paymentSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.auth = authHelper.NewAuthHelper(s.DB, s.Config.JWT)
}

// approvedExamRequest walks a fresh lab exam request through nurse review so
// it sits in approved_pending_payment with the locked 3990 price.
func (s *paymentSuite) approvedExamRequest(patientToken, nurseToken string) response.RequestResponse {
	t := s.T()

	body := reqdto.CreateRequestRequest{
		Variant:  string(request.VariantExam),
		ExamType: "laboratory",
		Exams:    []string{"hemograma completo"},
	}
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, requestsURL, body, patientToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created response.RequestResponse
	httptest.DecodeResponseBody(t, w.Body, &created)

	w = httptest.PerformRequest(t, s.Router, http.MethodPost,
		requestsURL+"/"+created.ID.String()+"/claim", nil, nurseToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.PerformRequest(t, s.Router, http.MethodPost,
		requestsURL+"/"+created.ID.String()+"/status",
		reqdto.StatusActionRequest{Action: "approve"}, nurseToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var approved response.RequestResponse
	httptest.DecodeResponseBody(t, w.Body, &approved)
	require.NotNil(t, approved.PriceCents)
	require.Equal(t, int64(3990), *approved.PriceCents)
	return approved
}

func (s *paymentSuite) createPayment(token string, requestID uuid.UUID, method string, wantCode int) response.PaymentResponse {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
		reqdto.CreatePaymentRequest{RequestID: requestID, Method: method}, token)
	require.Equal(t, wantCode, w.Code, w.Body.String())

	var res response.PaymentResponse
	if w.Code < http.StatusMultipleChoices {
		httptest.DecodeResponseBody(t, w.Body, &res)
	}
	return res
}

func (s *paymentSuite) providerPaymentID(paymentID uuid.UUID) string {
	t := s.T()

	var providerID string
	err := s.DB.QueryRow(context.Background(),
		"SELECT provider_payment_id FROM payments WHERE id = $1", paymentID).Scan(&providerID)
	require.NoError(t, err)
	require.NotEmpty(t, providerID)
	return providerID
}

func (s *paymentSuite) deliverWebhook(eventID int64, dataID, status string, headers map[string]string, wantCode int) {
	t := s.T()

	body := map[string]any{
		"id":     eventID,
		"action": "payment.updated",
		"type":   "payment",
		"data":   map[string]any{"id": dataID, "status": status},
	}
	w := httptest.PerformRequestWithHeaders(t, s.Router, http.MethodPost, webhookURL, body, "", headers)
	require.Equal(t, wantCode, w.Code, w.Body.String())
}

func (s *paymentSuite) signedHeaders(dataID string) map[string]string {
	return authHelper.SignWebhook(s.Config.Payment.WebhookSecret, dataID, "req-"+dataID)
}

func (s *paymentSuite) TestCreatePayment() {
	s.Run("pix charge locks the approved amount", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		created := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)

		require.Equal(t, approved.ID, created.RequestID)
		require.Equal(t, payment.StatusPending.String(), created.Status)
		require.Equal(t, int64(3990), created.AmountCents)
		require.NotNil(t, created.CheckoutArtifacts.QRCode)
		require.NotNil(t, created.CheckoutArtifacts.PixCode)
	})

	s.Run("card charge returns a checkout link", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		created := s.createPayment(patientToken, approved.ID, "credit_card", http.StatusCreated)

		require.NotNil(t, created.CheckoutArtifacts.CheckoutURL)
		require.NotEmpty(t, *created.CheckoutArtifacts.CheckoutURL)
	})

	s.Run("double submit replays the active payment", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		first := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)
		replay := s.createPayment(patientToken, approved.ID, "pix", http.StatusOK)

		require.Equal(t, first.ID, replay.ID)

		var count int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM payments WHERE request_id = $1", approved.ID).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "only one payment row may exist")
	})

	s.Run("concurrent submits agree on a single active charge", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)

		payload, err := json.Marshal(reqdto.CreatePaymentRequest{RequestID: approved.ID, Method: "pix"})
		require.NoError(t, err)

		const racers = 8
		codes := make([]int, racers)
		bodies := make([][]byte, racers)

		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := stdhttptest.NewRequest(http.MethodPost, paymentsURL, bytes.NewReader(payload))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+patientToken)
				w := stdhttptest.NewRecorder()
				s.Router.ServeHTTP(w, req)
				codes[i] = w.Code
				bodies[i] = w.Body.Bytes()
			}()
		}
		wg.Wait()

		// Every racer walks away with the same payment, whether it opened
		// the charge or was handed the winner's row.
		ids := map[uuid.UUID]struct{}{}
		for i, code := range codes {
			require.Contains(t, []int{http.StatusOK, http.StatusCreated}, code, string(bodies[i]))
			var res response.PaymentResponse
			require.NoError(t, json.Unmarshal(bodies[i], &res))
			ids[res.ID] = struct{}{}
		}
		require.Len(t, ids, 1)

		var count int
		err = s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM payments WHERE request_id = $1 AND status IN ('pending','processing','completed')",
			approved.ID).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "exactly one active payment row may exist")
	})

	s.Run("unapproved request is not payable", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))

		body := reqdto.CreateRequestRequest{
			Variant:  string(request.VariantExam),
			ExamType: "laboratory",
			Exams:    []string{"hemograma completo"},
		}
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, requestsURL, body, patientToken)
		require.Equal(t, http.StatusCreated, w.Code)
		var created response.RequestResponse
		httptest.DecodeResponseBody(t, w.Body, &created)

		s.createPayment(patientToken, created.ID, "pix", http.StatusUnprocessableEntity)
	})

	s.Run("paying someone else's request reads as not found", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))
		strangerToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "outro@example.com", string(user.RolePatient))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		s.createPayment(strangerToken, approved.ID, "pix", http.StatusNotFound)
	})
}

func (s *paymentSuite) TestWebhookSettlement() {
	s.Run("nurse-approved exam is paid, signed by a doctor, and delivered", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))
		doctorToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "medico@example.com", string(user.RoleDoctor))
		adminToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "admin@example.com", string(user.RoleAdmin))

		approved := s.approvedExamRequest(patientToken, nurseToken)

		p := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)
		providerID := s.providerPaymentID(p.ID)

		e2e.SetStubPaymentStatus(providerID, "approved")
		s.deliverWebhook(111222, providerID, "approved", s.signedHeaders(providerID), http.StatusOK)

		paid := s.getRequest(patientToken, approved.ID)
		require.Equal(t, request.StatusPaid.String(), paid.Status)
		require.NotNil(t, paid.PaidAt)

		view := s.getPayment(patientToken, p.ID)
		require.Equal(t, payment.StatusCompleted.String(), view.Status)

		// Redelivery of the same event is deduplicated.
		s.deliverWebhook(111222, providerID, "approved", s.signedHeaders(providerID), http.StatusOK)
		again := s.getRequest(patientToken, approved.ID)
		require.Equal(t, paid.PaidAt.UTC(), again.PaidAt.UTC())

		// Nobody holds the doctor assignment on the nurse-reviewed path, so
		// the first doctor to sign takes it and fulfillment continues.
		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			requestsURL+"/"+approved.ID.String()+"/status",
			reqdto.StatusActionRequest{Action: "sign"}, doctorToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var signed response.RequestResponse
		httptest.DecodeResponseBody(t, w.Body, &signed)
		require.Equal(t, request.StatusSigned.String(), signed.Status)
		require.NotNil(t, signed.AssignedDoctorID)

		w = httptest.PerformRequest(t, s.Router, http.MethodPost,
			requestsURL+"/"+approved.ID.String()+"/status",
			reqdto.StatusActionRequest{Action: "deliver"}, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		final := s.getRequest(patientToken, approved.ID)
		require.Equal(t, request.StatusDelivered.String(), final.Status)
		require.NotNil(t, final.DeliveredAt)
	})

	s.Run("notification body cannot settle a charge the provider reports pending", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		p := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)
		providerID := s.providerPaymentID(p.ID)

		// The signature only covers data.id, so a replayed signature with a
		// body claiming approval is accepted at the door but settles nothing
		// while the provider still reports the charge pending.
		s.deliverWebhook(121212, providerID, "approved", s.signedHeaders(providerID), http.StatusOK)

		view := s.getPayment(patientToken, p.ID)
		require.NotEqual(t, payment.StatusCompleted.String(), view.Status)
		still := s.getRequest(patientToken, approved.ID)
		require.Equal(t, request.StatusApprovedPendingPay.String(), still.Status)

		// Once the provider actually settles, a fresh event completes it.
		e2e.SetStubPaymentStatus(providerID, "approved")
		s.deliverWebhook(121213, providerID, "approved", s.signedHeaders(providerID), http.StatusOK)

		settled := s.getPayment(patientToken, p.ID)
		require.Equal(t, payment.StatusCompleted.String(), settled.Status)
		paid := s.getRequest(patientToken, approved.ID)
		require.Equal(t, request.StatusPaid.String(), paid.Status)
	})

	s.Run("rejected event frees the request for a new attempt", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		first := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)
		providerID := s.providerPaymentID(first.ID)

		e2e.SetStubPaymentStatus(providerID, "rejected")
		s.deliverWebhook(333444, providerID, "rejected", s.signedHeaders(providerID), http.StatusOK)

		failed := s.getPayment(patientToken, first.ID)
		require.Equal(t, payment.StatusFailed.String(), failed.Status)

		// The request is still awaiting payment, so a retry opens a new charge.
		still := s.getRequest(patientToken, approved.ID)
		require.Equal(t, request.StatusApprovedPendingPay.String(), still.Status)

		retry := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)
		require.NotEqual(t, first.ID, retry.ID)
	})

	s.Run("forged signature is rejected without side effects", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		nurseToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "enfermeira@example.com", string(user.RoleNurse))

		approved := s.approvedExamRequest(patientToken, nurseToken)
		p := s.createPayment(patientToken, approved.ID, "pix", http.StatusCreated)
		providerID := s.providerPaymentID(p.ID)

		forged := authHelper.SignWebhook("wrong-secret", providerID, "req-forged")
		s.deliverWebhook(555666, providerID, "approved", forged, http.StatusUnauthorized)

		view := s.getPayment(patientToken, p.ID)
		require.Equal(t, payment.StatusPending.String(), view.Status)
	})

	s.Run("event for an unknown charge is acknowledged and ignored", func() {
		headers := s.signedHeaders("424242")
		s.deliverWebhook(777888, "424242", "approved", headers, http.StatusOK)
	})
}

func (s *paymentSuite) TestRateLimit() {
	s.Run("eleventh attempt in the window is throttled", func() {
		t := s.T()
		patientToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))

		// Each attempt counts against the window even when it fails.
		bogus := uuid.New()
		for i := 0; i < s.Config.RateLimit.PaymentMaxAttempts; i++ {
			s.createPayment(patientToken, bogus, "pix", http.StatusNotFound)
		}

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
			reqdto.CreatePaymentRequest{RequestID: bogus, Method: "pix"}, patientToken)
		require.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())
	})

	s.Run("limit is per user", func() {
		t := s.T()
		firstToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "paciente@example.com", string(user.RolePatient))
		secondToken := s.auth.CreateAndLoginWithDB(t, s.DB, s.Router, "outro@example.com", string(user.RolePatient))

		bogus := uuid.New()
		for i := 0; i < s.Config.RateLimit.PaymentMaxAttempts; i++ {
			s.createPayment(firstToken, bogus, "pix", http.StatusNotFound)
		}

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, paymentsURL,
			reqdto.CreatePaymentRequest{RequestID: bogus, Method: "pix"}, firstToken)
		require.Equal(t, http.StatusTooManyRequests, w.Code)

		// A different user on the same endpoint still gets through.
		s.createPayment(secondToken, bogus, "pix", http.StatusNotFound)
	})
}

func (s *paymentSuite) getRequest(token string, id uuid.UUID) response.RequestResponse {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, requestsURL+"/"+id.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res response.RequestResponse
	httptest.DecodeResponseBody(t, w.Body, &res)
	return res
}

func (s *paymentSuite) getPayment(token string, id uuid.UUID) response.PaymentViewResponse {
	t := s.T()

	w := httptest.PerformRequest(t, s.Router, http.MethodGet, paymentsURL+"/"+id.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res response.PaymentViewResponse
	httptest.DecodeResponseBody(t, w.Body, &res)
	return res
}
