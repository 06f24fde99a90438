package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	appointmentserrors "medbook/internal/appointments/errors"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
)

type mockAppointmentService struct {
	bookFunc         func(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	updateStatusFunc func(ctx context.Context, id string, update *model.StatusUpdate) (*model.Appointment, error)
	listFunc         func(ctx context.Context, status model.AppointmentStatus) ([]*model.AppointmentView, error)
	deleted          []string
}

func (m *mockAppointmentService) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	if m.bookFunc != nil {
		return m.bookFunc(ctx, req)
	}
	return &model.Appointment{}, nil
}

func (m *mockAppointmentService) Cancel(ctx context.Context, id string) (*model.Appointment, error) {
	return m.UpdateStatus(ctx, id, &model.StatusUpdate{Status: model.StatusCancelled})
}

func (m *mockAppointmentService) UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate) (*model.Appointment, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, update)
	}
	return &model.Appointment{ID: id, Status: update.Status}, nil
}

func (m *mockAppointmentService) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAppointmentService) GetByID(ctx context.Context, id string) (*model.AppointmentView, error) {
	return nil, apperrors.NotFoundWithID("Appointment", id)
}

func (m *mockAppointmentService) List(ctx context.Context, status model.AppointmentStatus) ([]*model.AppointmentView, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, status)
	}
	return []*model.AppointmentView{}, nil
}

func newRouter(svc *mockAppointmentService) *httprouter.Router {
	router := httprouter.New()
	NewAppointmentHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestBook_Responses(t *testing.T) {
	const body = `{"time_slot_id":"65a000000000000000000001","patient_name":"Ada Lovelace","patient_email":"ada@example.com","patient_phone":"+14155552671"}`

	tests := []struct {
		name       string
		body       string
		bookErr    error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{name: "created", body: body, wantStatus: http.StatusCreated},
		{name: "unknown field", body: `{"time_slot_id":"x","extra":1}`, wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantCode: apperrors.CodeInvalidInput},
		{
			name:       "already booked",
			body:       body,
			bookErr:    apperrors.ConflictReason(appointmentserrors.ErrAlreadyBooked, "already_booked", "Slot is already booked"),
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeConflict,
			wantReason: "already_booked",
		},
		{
			name:       "slot missing",
			body:       body,
			bookErr:    apperrors.NotFoundWithID("Slot", "65a000000000000000000001"),
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received *model.BookingRequest
			svc := &mockAppointmentService{
				bookFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
					received = req
					if tt.bookErr != nil {
						return nil, tt.bookErr
					}
					return &model.Appointment{ID: "a1", TimeSlotID: req.TimeSlotID, Status: model.StatusConfirmed}, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusCreated {
				if received == nil || received.Name != "Ada Lovelace" {
					t.Errorf("patient info not decoded: %+v", received)
				}
				return
			}

			var resp struct {
				Code    string         `json:"code"`
				Details map[string]any `json:"details"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if tt.wantReason != "" && resp.Details["reason"] != tt.wantReason {
				t.Errorf("reason = %v, want %s", resp.Details["reason"], tt.wantReason)
			}
		})
	}
}

func TestStatusRoutes(t *testing.T) {
	var gotID string
	var gotStatus model.AppointmentStatus
	svc := &mockAppointmentService{
		updateStatusFunc: func(ctx context.Context, id string, update *model.StatusUpdate) (*model.Appointment, error) {
			gotID, gotStatus = id, update.Status
			return &model.Appointment{ID: id, Status: update.Status}, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/id/a1/status", strings.NewReader(`{"status":"confirmed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	if gotID != "a1" || gotStatus != model.StatusConfirmed {
		t.Errorf("service got (%s, %s)", gotID, gotStatus)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/appointments/id/a2/cancel", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}
	if gotID != "a2" || gotStatus != model.StatusCancelled {
		t.Errorf("cancel routed as (%s, %s)", gotID, gotStatus)
	}
}

func TestDeleteAndGet(t *testing.T) {
	svc := &mockAppointmentService{}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/id/a1", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "a1" {
		t.Errorf("deleted = %v", svc.deleted)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments/id/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
}

func TestList_StatusFilter(t *testing.T) {
	var got model.AppointmentStatus
	svc := &mockAppointmentService{
		listFunc: func(ctx context.Context, status model.AppointmentStatus) ([]*model.AppointmentView, error) {
			got = status
			return []*model.AppointmentView{}, nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments?status=%20Cancelled", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != model.StatusCancelled {
		t.Errorf("filter = %q, want cancelled", got)
	}
}
