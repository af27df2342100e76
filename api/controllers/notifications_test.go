package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farmbridge/farmbridge-backend/api/middleware"
	"github.com/farmbridge/farmbridge-backend/internal/notifications"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type stubNotificationsService struct {
	listed     *notifications.NotificationsResult
	markReadID uuid.UUID
	markErr    error
	markedAll  int64
}

func (s *stubNotificationsService) List(_ context.Context, _ uuid.UUID, _ bool, _ pagination.Params) (*notifications.NotificationsResult, error) {
	return s.listed, nil
}

func (s *stubNotificationsService) MarkRead(_ context.Context, _, notificationID uuid.UUID) error {
	s.markReadID = notificationID
	return s.markErr
}

func (s *stubNotificationsService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return s.markedAll, nil
}

func (s *stubNotificationsService) CountUnread(context.Context, uuid.UUID) (int64, error) {
	return 3, nil
}

func authedRequest(method, target string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := middleware.WithUserID(req.Context(), userID.String())
	return req.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestListNotificationsReturnsPage(t *testing.T) {
	svc := &stubNotificationsService{
		listed: &notifications.NotificationsResult{
			Items: []models.Notification{{Title: "New order received"}},
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/notifications?limit=10", uuid.New())
	resp := httptest.NewRecorder()
	ListNotifications(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Data notifications.NotificationsResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data.Items) != 1 {
		t.Fatalf("expected one notification, got %d", len(body.Data.Items))
	}
}

func TestListNotificationsRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	ListNotifications(&stubNotificationsService{}, nil)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	svc := &stubNotificationsService{markErr: pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")}
	notificationID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", uuid.New())
	req = withURLParam(req, "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, nil)(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if svc.markReadID != notificationID {
		t.Fatalf("expected service called with %s got %s", notificationID, svc.markReadID)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	svc := &stubNotificationsService{markedAll: 4}

	req := authedRequest(http.MethodPost, "/api/v1/notifications/read-all", uuid.New())
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data["marked"] != 4 {
		t.Fatalf("expected 4 marked, got %d", body.Data["marked"])
	}
}
