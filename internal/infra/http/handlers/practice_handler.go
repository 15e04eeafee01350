package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/practice-sync/internal/entity"
)

type PracticeHandler struct {
	Practices    entity.PracticeRepositoryInterface
	Appointments entity.AppointmentRepositoryInterface
	Leads        entity.LeadRepositoryInterface
}

func NewPracticeHandler(practices entity.PracticeRepositoryInterface, appointments entity.AppointmentRepositoryInterface, leads entity.LeadRepositoryInterface) *PracticeHandler {
	return &PracticeHandler{
		Practices:    practices,
		Appointments: appointments,
		Leads:        leads,
	}
}

type CreatePracticeInput struct {
	Name           string `json:"name"`
	IntakeQKey     string `json:"intakeqKey"`
	IntakeQBaseURL string `json:"intakeqBaseUrl"`
}

type UpdateVtigerCredentialsInput struct {
	URL       string `json:"url"`
	Username  string `json:"username"`
	AccessKey string `json:"accessKey"`
}

type UpdateIntakeQCredentialsInput struct {
	Key     string `json:"key"`
	BaseURL string `json:"baseUrl"`
}

type PracticeWithStats struct {
	entity.Practice
	Stats entity.PracticeStats `json:"stats"`
}

// CreateHandler (POST /api/practices)
func (h *PracticeHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input CreatePracticeInput

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "JSON inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	practice, err := entity.NewPractice(input.Name, input.IntakeQKey, input.IntakeQBaseURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Practices.Create(r.Context(), practice); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(practice)
}

// ListHandler (GET /api/practices) retorna cada practice com os
// agregados que o dashboard mostra.
func (h *PracticeHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	practices, err := h.Practices.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]PracticeWithStats, 0, len(practices))
	for _, p := range practices {
		stats, err := h.collectStats(r, p.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, PracticeWithStats{Practice: p, Stats: *stats})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// GetHandler (GET /api/practices/{id})
func (h *PracticeHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	practice, err := h.Practices.FindByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Practice não encontrada", http.StatusNotFound)
		return
	}

	stats, err := h.collectStats(r, practice.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PracticeWithStats{Practice: *practice, Stats: *stats})
}

// UpdateVtigerHandler (PUT /api/practices/{id}/vtiger)
func (h *PracticeHandler) UpdateVtigerHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input UpdateVtigerCredentialsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "JSON inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	if input.URL == "" || input.Username == "" || input.AccessKey == "" {
		http.Error(w, "url, username e accessKey são obrigatórios", http.StatusBadRequest)
		return
	}

	practice, err := h.Practices.UpdateVtigerCredentials(r.Context(), id, input.URL, input.Username, input.AccessKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(practice)
}

// UpdateIntakeQHandler (PUT /api/practices/{id}/intakeq)
func (h *PracticeHandler) UpdateIntakeQHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input UpdateIntakeQCredentialsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "JSON inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	if input.Key == "" {
		http.Error(w, "key é obrigatória", http.StatusBadRequest)
		return
	}

	practice, err := h.Practices.UpdateIntakeQCredentials(r.Context(), id, input.Key, input.BaseURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(practice)
}

// ListAppointmentsHandler (GET /api/practices/{id}/appointments?page=N&pageSize=M)
func (h *PracticeHandler) ListAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, offset, page := pagination(r)

	appts, total, err := h.Appointments.ListPage(r.Context(), id, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"page":     page,
		"pageSize": limit,
		"total":    total,
		"items":    appts,
	})
}

// ListLeadsHandler (GET /api/practices/{id}/leads?page=N&pageSize=M)
func (h *PracticeHandler) ListLeadsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, offset, page := pagination(r)

	leads, total, err := h.Leads.ListPage(r.Context(), id, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"page":     page,
		"pageSize": limit,
		"total":    total,
		"items":    leads,
	})
}

func (h *PracticeHandler) collectStats(r *http.Request, practiceID string) (*entity.PracticeStats, error) {
	ctx := r.Context()

	totalAppts, err := h.Appointments.CountByPractice(ctx, practiceID)
	if err != nil {
		return nil, err
	}

	_, totalLeads, err := h.Leads.ListPage(ctx, practiceID, 1, 0)
	if err != nil {
		return nil, err
	}

	emails, err := h.Leads.ListEmailsByPractice(ctx, practiceID)
	if err != nil {
		return nil, err
	}

	matched := 0
	if len(emails) > 0 {
		matched, err = h.Appointments.CountByPracticeAndEmails(ctx, practiceID, emails)
		if err != nil {
			return nil, err
		}
	}

	lastFetch, err := h.Appointments.LastSyncedAt(ctx, practiceID)
	if err != nil {
		return nil, err
	}

	return &entity.PracticeStats{
		TotalAppointments:     totalAppts,
		TotalLeads:            totalLeads,
		MatchedAppointments:   matched,
		UnmatchedAppointments: totalAppts - matched,
		LastFetch:             lastFetch,
	}, nil
}

func pagination(r *http.Request) (limit, offset, page int) {
	page = 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	offset = (page - 1) * limit
	return limit, offset, page
}
