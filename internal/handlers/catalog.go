package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lumenspa/booking/internal/model"
)

type serviceItem struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	Specialty       string `json:"specialty"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
}

type staffItem struct {
	StaffID     string `json:"staff_id"`
	DisplayName string `json:"display_name"`
	Specialty   string `json:"specialty"`
}

func (h *BookingHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	services, err := h.catalog.ListServices(r.Context())
	if err != nil {
		h.logger.Error("list services failed", "err", err)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, serviceItem{
			ServiceID:       s.ID,
			Name:            s.Name,
			Specialty:       s.Specialty,
			Price:           s.Price.String(),
			DurationMinutes: s.DurationMinutes,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	staff, err := h.catalog.ListStaff(r.Context())
	if err != nil {
		h.logger.Error("list staff failed", "err", err)
		http.Error(w, "failed to list staff", http.StatusInternalServerError)
		return
	}
	items := make([]staffItem, 0, len(staff))
	for _, m := range staff {
		items = append(items, staffItem{
			StaffID:     m.ID,
			DisplayName: m.DisplayName,
			Specialty:   m.Specialty,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type createServiceRequest struct {
	Name            string `json:"name"`
	Specialty       string `json:"specialty"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *BookingHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	price, err := model.ParseMoney(strings.TrimSpace(req.Price))
	if err != nil {
		http.Error(w, "invalid price", http.StatusUnprocessableEntity)
		return
	}
	svc, err := h.catalog.CreateService(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Specialty), price, req.DurationMinutes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, serviceItem{
		ServiceID:       svc.ID,
		Name:            svc.Name,
		Specialty:       svc.Specialty,
		Price:           svc.Price.String(),
		DurationMinutes: svc.DurationMinutes,
	})
}

type createStaffRequest struct {
	DisplayName string `json:"display_name"`
	Specialty   string `json:"specialty"`
}

func (h *BookingHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	m, err := h.catalog.CreateStaff(r.Context(), strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.Specialty))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, staffItem{
		StaffID:     m.ID,
		DisplayName: m.DisplayName,
		Specialty:   m.Specialty,
	})
}
