package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/doctors/service"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/model"
)

type DoctorHandler struct {
	service service.DoctorService
	log     *logger.Logger
}

func NewDoctorHandler(service service.DoctorService, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service: service,
		log:     log,
	}
}

func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var d model.Doctor
	if err := httputil.DecodeJSON(r, &d); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Create(r.Context(), &d); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, d)
}

func (h *DoctorHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, d)
}

func (h *DoctorHandler) GetBySlug(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := h.service.GetBySlug(r.Context(), ps.ByName("slug"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, d)
}

func (h *DoctorHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doctors, totalCount, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, doctors, totalCount, limit, int(offset))
}

func (h *DoctorHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.DoctorUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, d)
}

func (h *DoctorHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/doctors", h.Create)
	router.GET("/api/v1/doctors", h.GetAll)
	router.GET("/api/v1/doctors/id/:id", h.GetByID)
	router.GET("/api/v1/doctors/slug/:slug", h.GetBySlug)
	router.PATCH("/api/v1/doctors/id/:id", h.Update)
}
