package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"medbook/pkg/logger"
	"medbook/pkg/model"
)

type mockSlotService struct {
	filter      model.SlotFilter
	doctorID    string
	slug        string
	from, to    string
	generateReq *model.GenerateRequest
}

func (m *mockSlotService) Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResult, error) {
	m.generateReq = req
	return &model.GenerateResult{Generated: 16}, nil
}

func (m *mockSlotService) CreateSlot(ctx context.Context, slot *model.Slot) error {
	slot.ID = "s1"
	return nil
}

func (m *mockSlotService) DeleteSlot(ctx context.Context, id string) error {
	return nil
}

func (m *mockSlotService) ListSlots(ctx context.Context, filter model.SlotFilter) (*model.SlotListing, error) {
	m.filter = filter
	return &model.SlotListing{Slots: []*model.SlotWithAppointment{}, Limit: 5000}, nil
}

func (m *mockSlotService) ListAvailable(ctx context.Context, doctorID, from, to string) ([]*model.Slot, error) {
	m.doctorID, m.from, m.to = doctorID, from, to
	return []*model.Slot{}, nil
}

func (m *mockSlotService) AvailabilityForDoctor(ctx context.Context, doctorID, from, to string) (*model.DoctorAvailability, error) {
	m.doctorID, m.from, m.to = doctorID, from, to
	return &model.DoctorAvailability{}, nil
}

func (m *mockSlotService) AvailabilityForDoctorSlug(ctx context.Context, slug, from, to string) (*model.DoctorAvailability, error) {
	m.slug, m.from, m.to = slug, from, to
	return &model.DoctorAvailability{}, nil
}

func serve(svc *mockSlotService, method, target, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewSlotHandler(svc, logger.Discard()).RegisterRoutes(router)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestList_QueryParameters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		check      func(t *testing.T, f model.SlotFilter)
	}{
		{
			name:       "all filters",
			query:      "?doctor_id=d1&schedule_id=s1&from=2026-01-05&to=2026-01-31&available=false",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f model.SlotFilter) {
				if f.DoctorID != "d1" || f.ScheduleID != "s1" || f.FromDate != "2026-01-05" || f.ToDate != "2026-01-31" {
					t.Errorf("unexpected filter: %+v", f)
				}
				if f.Available == nil || *f.Available {
					t.Errorf("available = %v, want false", f.Available)
				}
			},
		},
		{
			name:       "no filters",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f model.SlotFilter) {
				if f.Available != nil || f.FromDate != "" {
					t.Errorf("expected empty filter, got %+v", f)
				}
			},
		},
		{name: "bad date", query: "?from=05-01-2026", wantStatus: http.StatusBadRequest},
		{name: "bad bool", query: "?available=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSlotService{}
			rec := serve(svc, http.MethodGet, "/api/v1/slots"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, svc.filter)
			}
			if rec.Code == http.StatusOK && !strings.Contains(rec.Body.String(), `"truncated":false`) {
				t.Errorf("listing should report truncation: %s", rec.Body.String())
			}
		})
	}
}

func TestAvailabilityRoutes(t *testing.T) {
	svc := &mockSlotService{}

	rec := serve(svc, http.MethodGet, "/api/v1/doctors/id/d7/available-slots?from=2026-01-05", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.doctorID != "d7" || svc.from != "2026-01-05" || svc.to != "" {
		t.Errorf("service got (%s, %s, %s)", svc.doctorID, svc.from, svc.to)
	}

	rec = serve(svc, http.MethodGet, "/api/v1/slots/available?doctor_id=d8&to=2026-02-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.doctorID != "d8" || svc.to != "2026-02-01" {
		t.Errorf("service got (%s, %s, %s)", svc.doctorID, svc.from, svc.to)
	}

	rec = serve(svc, http.MethodGet, "/api/v1/doctors/slug/gregory-house/available-slots?to=2026-02-10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.slug != "gregory-house" || svc.to != "2026-02-10" {
		t.Errorf("service got (%s, %s, %s)", svc.slug, svc.from, svc.to)
	}
}

func TestGenerateAndCreate(t *testing.T) {
	svc := &mockSlotService{}

	rec := serve(svc, http.MethodPost, "/api/v1/slots/generate", `{"doctor_id":"65a000000000000000000001","to_date":"2026-02-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d", rec.Code)
	}
	if svc.generateReq == nil || svc.generateReq.ToDate != "2026-02-01" {
		t.Errorf("generate request not decoded: %+v", svc.generateReq)
	}

	rec = serve(svc, http.MethodPost, "/api/v1/slots", `{"doctor_id":"65a000000000000000000001","date":"2026-02-02","start_time":"10:00","end_time":"10:30"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("create status = %d", rec.Code)
	}

	rec = serve(svc, http.MethodDelete, "/api/v1/slots/id/s1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
}
