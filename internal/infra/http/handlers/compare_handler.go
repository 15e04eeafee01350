package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/queue"
	"github.com/xavierca1/practice-sync/internal/usecase"
)

type CompareHandler struct {
	Practices entity.PracticeRepositoryInterface
	CompareUC *usecase.CompareUseCase
	Producer  queue.QueueProducerInterface
}

func NewCompareHandler(practices entity.PracticeRepositoryInterface, compareUC *usecase.CompareUseCase, producer queue.QueueProducerInterface) *CompareHandler {
	return &CompareHandler{
		Practices: practices,
		CompareUC: compareUC,
		Producer:  producer,
	}
}

// GetHandler (GET /api/compare/{id}) roda a comparação somente leitura,
// sem tocar no CRM. É barata o bastante para rodar inline.
func (h *CompareHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	practice, err := h.findPractice(r, id)
	if err != nil {
		http.Error(w, "Practice não encontrada", http.StatusNotFound)
		return
	}

	result, err := h.CompareUC.Execute(r.Context(), practice, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type CompareSyncRequest struct {
	PracticeID   string `json:"practiceId,omitempty"`
	PracticeName string `json:"clientName,omitempty"`
}

// SyncHandler (POST /api/compare/sync) enfileira a conciliação com
// write-back no CRM; essa versão fala com o VTiger e roda no worker.
func (h *CompareHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	var input CompareSyncRequest

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "JSON inválido: "+err.Error(), http.StatusBadRequest)
		return
	}

	var practice *entity.Practice
	var err error
	if input.PracticeID != "" {
		practice, err = h.Practices.FindByID(r.Context(), input.PracticeID)
	} else {
		practice, err = h.Practices.FindByName(r.Context(), input.PracticeName)
	}
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
		Kind:         queue.KindCompare,
		PracticeID:   practice.ID,
		PracticeName: practice.Name,
	}

	if err := h.Producer.PublishSyncJob(r.Context(), payload); err != nil {
		http.Error(w, "Falha ao enfileirar conciliação: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SyncAcceptedResponse{
		Success: true,
		RunID:   payload.RunID,
		Message: "Conciliação com write-back iniciada",
	})
}

func (h *CompareHandler) findPractice(r *http.Request, idOrName string) (*entity.Practice, error) {
	practice, err := h.Practices.FindByID(r.Context(), idOrName)
	if err == nil {
		return practice, nil
	}
	return h.Practices.FindByName(r.Context(), idOrName)
}
