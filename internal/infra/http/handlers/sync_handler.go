package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/http/middleware"
	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
	"github.com/xavierca1/practice-sync/internal/infra/queue"
	"github.com/xavierca1/practice-sync/internal/usecase"
)

type SyncHandler struct {
	Practices entity.PracticeRepositoryInterface
	Producer  queue.QueueProducerInterface
	Cursors   usecase.CursorStore
}

func NewSyncHandler(practices entity.PracticeRepositoryInterface, producer queue.QueueProducerInterface, cursors usecase.CursorStore) *SyncHandler {
	return &SyncHandler{
		Practices: practices,
		Producer:  producer,
		Cursors:   cursors,
	}
}

type SyncAppointmentsRequest struct {
	PracticeID   string `json:"practiceId,omitempty"`
	PracticeName string `json:"clientName,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	APIURL       string `json:"apiUrl,omitempty"`
	RequestedBy  string `json:"requestedBy,omitempty"`
}

type SyncLeadsRequest struct {
	PracticeID   string `json:"practiceId,omitempty"`
	PracticeName string `json:"clientName,omitempty"`
	RequestedBy  string `json:"requestedBy,omitempty"`
}

type SyncAcceptedResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId"`
	Message string `json:"message"`
}

// SyncAppointmentsHandler (POST /api/appointments/sync)
// Aceita credenciais inline ou resolve pelo banco; o fetch roda no
// worker e o endpoint responde 202 com o id da run.
func (h *SyncHandler) SyncAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	var input SyncAppointmentsRequest

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "JSON inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	payload := queue.SyncJobPayload{
		RunID:        uuid.New().String(),
		Kind:         queue.KindAppointments,
		PracticeName: input.PracticeName,
		RequestedBy:  input.RequestedBy,
		APIKey:       input.APIKey,
		APIURL:       input.APIURL,
	}

	if payload.APIKey == "" {
		// Sem credencial inline: a practice precisa existir no banco
		practice, err := h.resolvePractice(r, input.PracticeID, input.PracticeName)
		if err != nil {
			http.Error(w, "Practice não encontrada e nenhuma apiKey informada", http.StatusBadRequest)
			return
		}
		payload.PracticeID = practice.ID
		payload.PracticeName = practice.Name
		payload.APIKey = practice.IntakeQKey
		payload.APIURL = practice.IntakeQBaseURL
	}

	if payload.PracticeName == "" {
		http.Error(w, "clientName é obrigatório", http.StatusBadRequest)
		return
	}
	if payload.APIURL == "" {
		payload.APIURL = os.Getenv("INTAKEQ_API_URL")
	}

	if err := h.Producer.PublishSyncJob(r.Context(), payload); err != nil {
		middleware.RecordIntegrationError("rabbitmq")
		http.Error(w, "Falha ao enfileirar sync: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.accepted(w, payload.RunID, "Sync de appointments iniciado")
}

// SyncLeadsHandler (POST /api/leads/sync)
func (h *SyncHandler) SyncLeadsHandler(w http.ResponseWriter, r *http.Request) {
	var input SyncLeadsRequest

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "JSON inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	practice, err := h.resolvePractice(r, input.PracticeID, input.PracticeName)
	if err != nil {
		http.Error(w, "Practice não encontrada", http.StatusNotFound)
		return
	}

	if !practice.HasVtigerCredentials() {
		http.Error(w, "Practice sem credenciais do VTiger configuradas", http.StatusBadRequest)
		return
	}

	payload := queue.SyncJobPayload{
		RunID:        uuid.New().String(),
		Kind:         queue.KindLeads,
		PracticeID:   practice.ID,
		PracticeName: practice.Name,
		RequestedBy:  input.RequestedBy,
	}

	if err := h.Producer.PublishSyncJob(r.Context(), payload); err != nil {
		middleware.RecordIntegrationError("rabbitmq")
		http.Error(w, "Falha ao enfileirar sync: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.accepted(w, payload.RunID, "Sync de leads iniciado")
}

// AllAppointmentsHandler (GET /api/appointments/all/{practice})
// Serve o acumulado do arquivo de cursor, como veio da fonte.
func (h *SyncHandler) AllAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	practiceName := chi.URLParam(r, "practice")

	lastPage, records, err := h.Cursors.LoadAppointments(practiceName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]intakeq.Appointment, 0, len(records))
	for _, rec := range records {
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":         true,
		"lastPageFetched": lastPage,
		"total":           len(records),
		"appointments":    items,
	})
}

// AllLeadsHandler (GET /api/leads/all/{practice})
func (h *SyncHandler) AllLeadsHandler(w http.ResponseWriter, r *http.Request) {
	practiceName := chi.URLParam(r, "practice")

	lastOffset, leads, err := h.Cursors.LoadLeads(practiceName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"lastOffset": lastOffset,
		"total":      len(leads),
		"leads":      leads,
	})
}

func (h *SyncHandler) resolvePractice(r *http.Request, id, name string) (*entity.Practice, error) {
	if id != "" {
		return h.Practices.FindByID(r.Context(), id)
	}
	return h.Practices.FindByName(r.Context(), name)
}

func (h *SyncHandler) accepted(w http.ResponseWriter, runID, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SyncAcceptedResponse{
		Success: true,
		RunID:   runID,
		Message: message,
	})
}
