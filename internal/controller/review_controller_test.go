package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/reviewloop/outreach-backend/internal/controller"
	appErrors "github.com/reviewloop/outreach-backend/internal/errors"
	"github.com/reviewloop/outreach-backend/internal/model"
	"github.com/reviewloop/outreach-backend/internal/queue"
	"github.com/reviewloop/outreach-backend/internal/repository"
	"github.com/reviewloop/outreach-backend/internal/service"
	"github.com/reviewloop/outreach-backend/internal/transport"
)

// Minimal stubs; the agent logic itself is covered in the service tests.

type stubRequestRepo struct {
	requests map[string]*model.ReviewRequest
}

func (s *stubRequestRepo) Create(req *model.ReviewRequest) error {
	s.requests[req.ID] = req
	return nil
}

func (s *stubRequestRepo) GetByID(id string) (*model.ReviewRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, appErrors.NewNotFound("review request", id)
	}
	return req, nil
}

func (s *stubRequestRepo) Update(req *model.ReviewRequest) error {
	s.requests[req.ID] = req
	return nil
}

func (s *stubRequestRepo) ListDueFollowups(now time.Time, limit int) ([]*model.ReviewRequest, error) {
	return nil, nil
}

type stubTemplateRepo struct{}

func (s *stubTemplateRepo) GetByName(tenantID string, agent model.AgentType, name string) (*model.ResponseTemplate, error) {
	return nil, nil
}
func (s *stubTemplateRepo) IncrementUsage(id string) error         { return nil }
func (s *stubTemplateRepo) IncrementSuccess(id string) error       { return nil }
func (s *stubTemplateRepo) Create(t *model.ResponseTemplate) error { return nil }

type stubRuleRepo struct{}

func (s *stubRuleRepo) ListActive(tenantID string) ([]*model.SafetyRule, error) { return nil, nil }
func (s *stubRuleRepo) Create(rule *model.SafetyRule) error                     { return nil }

type stubHandoffRepo struct{}

func (s *stubHandoffRepo) Create(h *model.HumanHandoff) error { return nil }
func (s *stubHandoffRepo) GetByID(id string) (*model.HumanHandoff, error) {
	return nil, appErrors.NewNotFound("handoff", id)
}
func (s *stubHandoffRepo) Update(h *model.HumanHandoff) error { return nil }
func (s *stubHandoffRepo) ListByStatus(tenantID string, status model.HandoffStatus, limit int) ([]*model.HumanHandoff, error) {
	return nil, nil
}
func (s *stubHandoffRepo) HasOpenForConversation(conversationID string) (bool, error) {
	return false, nil
}

type stubSender struct{}

func (s *stubSender) Send(ctx context.Context, job queue.OutboundSendJob) (*transport.SendResult, error) {
	return &transport.SendResult{Success: true}, nil
}

func newTestRouter() (chi.Router, *stubRequestRepo, *service.ReviewRequestAgent) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	requests := &stubRequestRepo{requests: map[string]*model.ReviewRequest{}}
	agent := &service.ReviewRequestAgent{
		Requests:  requests,
		Templates: &stubTemplateRepo{},
		Safety:    service.NewSafetyService(&stubRuleRepo{}, logger, nil, time.Minute),
		Limiter: &service.RateLimiter{
			Store:        repository.NewInMemoryRateLimitStore(),
			Logger:       logger,
			DailyLimit:   3,
			WeeklyLimit:  10,
			MonthlyLimit: 30,
		},
		Handoffs:         &service.HandoffService{Repo: &stubHandoffRepo{}, Logger: logger},
		Sender:           &stubSender{},
		Logger:           logger,
		MaxFollowups:     3,
		FollowupInterval: 72 * time.Hour,
		NegativeCutoff:   4,
		BatchPageSize:    50,
	}

	c := &controller.ReviewController{Agent: agent}
	r := chi.NewRouter()
	r.Post("/tenants/{tenantID}/review-requests", c.CreateReviewRequest)
	r.Post("/review-requests/{id}/response", c.ProcessReviewResponse)
	r.Post("/review-requests/{id}/click", c.MarkClicked)
	return r, requests, agent
}

func TestCreateReviewRequestEndpoint(t *testing.T) {
	router, _, _ := newTestRouter()

	body := bytes.NewBufferString(`{
		"customer_id": "cust-1",
		"customer_name": "Ada",
		"job_type": "HVAC repair",
		"method": "sms",
		"contact_address": "+15550001111",
		"business_name": "Acme Heating"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/tenants/tenant-1/review-requests", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created model.ReviewRequest
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if created.TenantID != "tenant-1" || created.Status != model.ReviewSent {
		t.Errorf("unexpected response: %+v", created)
	}
}

func TestCreateReviewRequestEndpointValidation(t *testing.T) {
	router, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/tenants/tenant-1/review-requests",
		bytes.NewBufferString(`{"customer_name": "Ada"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", rec.Code)
	}
}

func TestCreateReviewRequestEndpointRateLimited(t *testing.T) {
	router, _, agent := newTestRouter()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := agent.Limiter.IncrementCount(ctx, "tenant-1", "cust-1"); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	body := bytes.NewBufferString(`{
		"customer_id": "cust-1",
		"contact_address": "+15550001111"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/tenants/tenant-1/review-requests", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProcessReviewResponseEndpointNotFound(t *testing.T) {
	router, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/review-requests/missing/response",
		bytes.NewBufferString(`{"rating": 5, "platform": "google"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestProcessReviewResponseEndpoint(t *testing.T) {
	router, requests, _ := newTestRouter()
	requests.requests["req-1"] = &model.ReviewRequest{
		ID:       "req-1",
		TenantID: "tenant-1",
		Status:   model.ReviewDelivered,
		Metadata: map[string]string{},
	}

	req := httptest.NewRequest(http.MethodPost, "/review-requests/req-1/response",
		bytes.NewBufferString(`{"rating": 5, "text": "Great work", "platform": "google"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result service.ReviewResponseResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if result.Intercepted || result.RedirectURL == "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestMarkClickedEndpoint(t *testing.T) {
	router, requests, _ := newTestRouter()
	requests.requests["req-1"] = &model.ReviewRequest{
		ID: "req-1", TenantID: "tenant-1", Status: model.ReviewDelivered,
	}

	req := httptest.NewRequest(http.MethodPost, "/review-requests/req-1/click", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if requests.requests["req-1"].Status != model.ReviewClicked {
		t.Errorf("expected clicked, got %s", requests.requests["req-1"].Status)
	}
}
