package handler

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/slots/service"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/model"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

func (h *SlotHandler) Generate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.GenerateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var slot model.Slot
	if err := httputil.DecodeJSON(r, &slot); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.CreateSlot(r.Context(), &slot); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, slot)
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteSlot(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := slotFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	listing, err := h.service.ListSlots(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, listing)
}

func (h *SlotHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	from, to, err := dateRange(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	slots, err := h.service.ListAvailable(r.Context(), doctorID, from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, slots)
}

func (h *SlotHandler) DoctorAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, to, err := dateRange(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	availability, err := h.service.AvailabilityForDoctor(r.Context(), ps.ByName("id"), from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, availability)
}

func (h *SlotHandler) DoctorAvailabilityBySlug(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, to, err := dateRange(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	availability, err := h.service.AvailabilityForDoctorSlug(r.Context(), ps.ByName("slug"), from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, availability)
}

func dateRange(r *http.Request) (string, string, error) {
	from, err := httputil.QueryDate(r, "from")
	if err != nil {
		return "", "", err
	}
	to, err := httputil.QueryDate(r, "to")
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

func slotFilter(r *http.Request) (model.SlotFilter, error) {
	from, to, err := dateRange(r)
	if err != nil {
		return model.SlotFilter{}, err
	}
	available, err := httputil.QueryBool(r, "available")
	if err != nil {
		return model.SlotFilter{}, err
	}

	query := r.URL.Query()
	return model.SlotFilter{
		DoctorID:   strings.TrimSpace(query.Get("doctor_id")),
		ScheduleID: strings.TrimSpace(query.Get("schedule_id")),
		FromDate:   from,
		ToDate:     to,
		Available:  available,
	}, nil
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slots/generate", h.Generate)
	router.GET("/api/v1/slots", h.List)
	router.GET("/api/v1/slots/available", h.ListAvailable)
	router.POST("/api/v1/slots", h.Create)
	router.DELETE("/api/v1/slots/id/:id", h.Delete)
	router.GET("/api/v1/doctors/id/:id/available-slots", h.DoctorAvailability)
	router.GET("/api/v1/doctors/slug/:slug/available-slots", h.DoctorAvailabilityBySlug)
}
