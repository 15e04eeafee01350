package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
	"github.com/xavierca1/practice-sync/internal/infra/ratelimit"
)

// SyncAppointmentsUseCase pagina a API do IntakeQ a partir do cursor
// salvo, deduplica por Id e grava banco + cursor a cada página.
//
// A ordem é sagrada: banco primeiro, cursor depois. Um crash entre os
// dois só re-busca a página no resume — o upsert por source id absorve.
type SyncAppointmentsUseCase struct {
	Practices    entity.PracticeRepositoryInterface
	Appointments entity.AppointmentRepositoryInterface
	Cursors      CursorStore
	Source       AppointmentSourceFactory

	// Teto de requests por run (parada suave, retomável)
	MaxRequests int
}

func NewSyncAppointmentsUseCase(
	practices entity.PracticeRepositoryInterface,
	appointments entity.AppointmentRepositoryInterface,
	cursors CursorStore,
	source AppointmentSourceFactory,
) *SyncAppointmentsUseCase {
	return &SyncAppointmentsUseCase{
		Practices:    practices,
		Appointments: appointments,
		Cursors:      cursors,
		Source:       source,
		MaxRequests:  ratelimit.DefaultMaxRunShots,
	}
}

func (uc *SyncAppointmentsUseCase) Execute(ctx context.Context, input SyncAppointmentsInput) (*SyncResult, error) {
	if input.PracticeName == "" || input.APIKey == "" || input.APIURL == "" {
		return nil, fmt.Errorf("clientName, apiKey e apiUrl são obrigatórios")
	}

	// A practice é garantida pela chave de credencial, nunca pelo nome
	practice, err := uc.Practices.UpsertByIntakeQKey(ctx, input.PracticeName, input.APIKey)
	if err != nil {
		return nil, &PersistenceError{Op: "upsert practice", Err: err}
	}

	lastPage, records, err := uc.Cursors.LoadAppointments(practice.Name)
	if err != nil {
		return nil, &PersistenceError{Op: "load cursor", Err: err}
	}

	source := uc.Source(input.APIKey, input.APIURL)
	budget := ratelimit.NewBudget(uc.MaxRequests)
	page := lastPage + 1

	result := &SyncResult{
		PracticeID:   practice.ID,
		PracticeName: practice.Name,
		Source:       "intakeq",
		TotalRecords: len(records),
	}

	log.Printf("🔄 Sync %s começando da página %d (última completada: %d)", practice.Name, page, lastPage)

	for {
		if !budget.Spend() {
			log.Printf("🛑 %s | Teto de requests da run (%d) atingido", practice.Name, uc.MaxRequests)
			result.StoppedByQuota = true
			break
		}

		appts, err := source.FetchPage(ctx, page)
		if err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				return result, &RateLimitError{Retries: ratelimit.DefaultMaxRetries}
			}
			return result, err
		}
		result.Requests++

		if len(appts) == 0 {
			log.Printf("✅ %s | Sem mais appointments (página %d vazia)", practice.Name, page)
			break
		}

		mapped := make([]entity.Appointment, 0, len(appts))
		for _, a := range appts {
			records[a.ID] = a
			mapped = append(mapped, intakeq.MapAppointment(a))
		}

		if _, err := uc.Appointments.BatchUpsert(ctx, practice.ID, mapped); err != nil {
			return result, &PersistenceError{Op: fmt.Sprintf("gravar página %d", page), Err: err}
		}

		if err := uc.Cursors.SaveAppointments(practice.Name, page, records); err != nil {
			return result, &PersistenceError{Op: "salvar cursor", Err: err}
		}

		result.Pages++
		result.TotalRecords = len(records)

		log.Printf("✔ %s | Página %d | %d registros | Total: %d | Restam: %d requests",
			practice.Name, page, len(appts), len(records), budget.Remaining())

		page++
	}

	log.Printf("🎉 %s | Sync finalizado: %d appointments únicos, %d requests nesta run",
		practice.Name, result.TotalRecords, result.Requests)

	return result, nil
}
