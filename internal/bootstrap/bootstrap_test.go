package bootstrap

import (
	"bytes"
	"encoding/json"
	"medbook/internal/events"
	"medbook/internal/memstore"
	"medbook/pkg/app"
	"medbook/pkg/clock"
	"medbook/pkg/config"
	"medbook/pkg/contracts"
	"medbook/pkg/logger"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Details map[string]any  `json:"details"`
}

type harness struct {
	t        *testing.T
	handler  http.Handler
	recorder *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.FromEnv("test")
	cfg.Log = logger.Discard()
	cfg.Clock = clock.NewFixed(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	cfg.StorageDriver = config.StorageMemory

	stores := Memory(memstore.New())
	recorder := events.NewRecorder()

	a := app.NewApplication(cfg)
	a.SetApp(contracts.Handlers{
		SchedulingHandlers(cfg, stores, recorder),
		AppointmentHandlers(cfg, stores, recorder),
	}, app.WithPinger(stores))
	t.Cleanup(a.Close)

	return &harness{t: t, handler: a.Handler(), recorder: recorder}
}

func (h *harness) do(method, path string, body any, wantStatus int) envelope {
	h.t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		h.t.Fatalf("%s %s = %d, want %d: %s", method, path, rec.Code, wantStatus, rec.Body.String())
	}

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

type idOnly struct {
	ID string `json:"id"`
}

func TestBookingLifecycle(t *testing.T) {
	h := newHarness(t)

	doctor := decode[idOnly](t, h.do(http.MethodPost, "/api/v1/doctors", map[string]any{
		"name":                 "Gregory House",
		"specialty":            "Diagnostics",
		"examination_duration": 30,
	}, http.StatusCreated).Data)

	schedule := decode[idOnly](t, h.do(http.MethodPost, "/api/v1/schedules", map[string]any{
		"doctor_id":        doctor.ID,
		"start_date":       "2026-01-05",
		"end_date":         "2026-01-31",
		"days_of_week":     []int{1, 3},
		"daily_start_time": "08:00",
		"daily_end_time":   "09:00",
	}, http.StatusCreated).Data)

	generated := decode[struct {
		Generated int `json:"generated"`
		Skipped   int `json:"skipped"`
	}](t, h.do(http.MethodPost, "/api/v1/slots/generate", map[string]any{"doctor_id": doctor.ID}, http.StatusOK).Data)
	if generated.Generated != 16 || generated.Skipped != 0 {
		t.Fatalf("generate = %+v, want 16 generated", generated)
	}

	again := decode[struct {
		Generated int `json:"generated"`
		Skipped   int `json:"skipped"`
	}](t, h.do(http.MethodPost, "/api/v1/slots/generate", map[string]any{"doctor_id": doctor.ID}, http.StatusOK).Data)
	if again.Generated != 0 || again.Skipped != 16 {
		t.Fatalf("second generate = %+v, want 16 skipped", again)
	}

	availability := decode[struct {
		Slots []struct {
			ID        string `json:"id"`
			StartTime string `json:"start_time"`
		} `json:"slots"`
	}](t, h.do(http.MethodGet, "/api/v1/doctors/id/"+doctor.ID+"/available-slots?from=2026-01-05&to=2026-01-05", nil, http.StatusOK).Data)
	if len(availability.Slots) != 2 {
		t.Fatalf("expected 2 free slots on 2026-01-05, got %d", len(availability.Slots))
	}
	slotID := availability.Slots[0].ID

	patient := map[string]any{
		"time_slot_id":  slotID,
		"patient_name":  "Ada Lovelace",
		"patient_email": "ada@example.com",
		"patient_phone": "+14155552671",
	}
	first := decode[idOnly](t, h.do(http.MethodPost, "/api/v1/appointments", patient, http.StatusCreated).Data)

	conflict := h.do(http.MethodPost, "/api/v1/appointments", patient, http.StatusConflict)
	if conflict.Details["reason"] != "slot_unavailable" {
		t.Errorf("double booking reason = %v", conflict.Details["reason"])
	}

	free := decode[[]idOnly](t, h.do(http.MethodGet, "/api/v1/slots/available?doctor_id="+doctor.ID+"&from=2026-01-05&to=2026-01-05", nil, http.StatusOK).Data)
	if len(free) != 1 {
		t.Errorf("expected 1 free slot after booking, got %d", len(free))
	}

	h.do(http.MethodPost, "/api/v1/appointments/id/"+first.ID+"/cancel", nil, http.StatusOK)
	second := decode[idOnly](t, h.do(http.MethodPost, "/api/v1/appointments", patient, http.StatusCreated).Data)
	if second.ID == first.ID {
		t.Error("rebooking must create a new appointment")
	}

	h.do(http.MethodDelete, "/api/v1/schedules/id/"+schedule.ID, nil, http.StatusNoContent)
	h.do(http.MethodGet, "/api/v1/schedules/id/"+schedule.ID, nil, http.StatusNotFound)

	remaining := decode[[]struct {
		ID         string `json:"id"`
		ScheduleID string `json:"schedule_id"`
	}](t, h.do(http.MethodGet, "/api/v1/slots?doctor_id="+doctor.ID, nil, http.StatusOK).Data)
	if len(remaining) != 1 || remaining[0].ID != slotID || remaining[0].ScheduleID != "" {
		t.Errorf("only the booked slot should survive, detached: %+v", remaining)
	}

	appointments := decode[[]struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, h.do(http.MethodGet, "/api/v1/appointments", nil, http.StatusOK).Data)
	if len(appointments) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(appointments))
	}

	want := map[events.Type]int{
		events.SlotsGenerated:           2,
		events.AppointmentBooked:        2,
		events.AppointmentCancelled:     1,
		events.AppointmentStatusChanged: 1,
		events.ScheduleDeleted:          1,
	}
	got := map[events.Type]int{}
	for _, typ := range h.recorder.Types() {
		got[typ]++
	}
	for typ, n := range want {
		if got[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, got[typ], n)
		}
	}
}

func TestReadiness(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/ready", nil, http.StatusOK)
	h.do(http.MethodGet, "/health", nil, http.StatusOK)
}
