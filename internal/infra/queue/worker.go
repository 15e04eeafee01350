package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/http/middleware"
	"github.com/xavierca1/practice-sync/internal/usecase"
)

// Contratos dos engines que o worker roda (implementados em usecase)
type AppointmentSyncer interface {
	Execute(ctx context.Context, input usecase.SyncAppointmentsInput) (*usecase.SyncResult, error)
}

type LeadSyncer interface {
	Execute(ctx context.Context, input usecase.SyncLeadsInput) (*usecase.SyncResult, error)
}

type CompareRunner interface {
	Execute(ctx context.Context, practice *entity.Practice, writeBack bool) (*entity.ComparisonResult, error)
}

// ReportSender manda o resumo da run por email (opcional)
type ReportSender interface {
	SendSyncReport(practiceName, kind, runID, summary string) error
}

type Worker struct {
	Channel      *amqp.Channel
	Appointments AppointmentSyncer
	Leads        LeadSyncer
	Compare      CompareRunner
	Practices    entity.PracticeRepositoryInterface
	Reporter     ReportSender // nil = sem email de report

	// Single-flight por practice+kind: dois syncs concorrentes do mesmo
	// tipo contra o mesmo cursor seriam uma corrida sem proteção.
	mu      sync.Mutex
	running map[string]bool
}

func NewWorker(ch *amqp.Channel, appointments AppointmentSyncer, leads LeadSyncer, compare CompareRunner, practices entity.PracticeRepositoryInterface, reporter ReportSender) *Worker {
	return &Worker{
		Channel:      ch,
		Appointments: appointments,
		Leads:        leads,
		Compare:      compare,
		Practices:    practices,
		Reporter:     reporter,
		running:      make(map[string]bool),
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual é mais seguro)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor RabbitMQ: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var payload SyncJobPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] JSON Inválido: %s", err)
				// Mensagem podre (malformada). Rejeita sem requeue.
				d.Nack(false, false)
				continue
			}

			log.Printf("📥 [WORKER] Job %s recebido: %s (%s)", payload.RunID, payload.Kind, payload.PracticeName)

			if err := w.processMessage(context.Background(), payload); err != nil {
				log.Printf("❌ [WORKER] Run %s falhou: %s", payload.RunID, err)
				// Erro fatal da run: o cursor persistido permite retomar
				// com um novo job; requeue automático só repetiria a falha.
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker rodando e aguardando na fila '%s'", queueName)
	<-forever
}

func (w *Worker) acquire(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running[key] {
		return false
	}
	w.running[key] = true
	return true
}

func (w *Worker) release(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.running, key)
}

func (w *Worker) processMessage(ctx context.Context, payload SyncJobPayload) error {
	key := payload.PracticeID
	if key == "" {
		key = payload.PracticeName
	}
	key += "|" + payload.Kind

	if !w.acquire(key) {
		log.Printf("⚠️ [WORKER] Sync %s já em andamento, job %s ignorado", key, payload.RunID)
		return nil
	}
	defer w.release(key)

	var summary string
	var err error

	switch payload.Kind {
	case KindAppointments:
		var result *usecase.SyncResult
		result, err = w.Appointments.Execute(ctx, usecase.SyncAppointmentsInput{
			PracticeName: payload.PracticeName,
			APIKey:       payload.APIKey,
			APIURL:       payload.APIURL,
		})
		if result != nil {
			summary = fmt.Sprintf("%d páginas, %d appointments, %d requests", result.Pages, result.TotalRecords, result.Requests)
			middleware.RecordPagesFetched("intakeq", result.Pages)
			middleware.RecordRecordsUpserted("intakeq", result.TotalRecords)
		}
		if err != nil {
			middleware.RecordIntegrationError("intakeq")
		}

	case KindLeads:
		var result *usecase.SyncResult
		result, err = w.Leads.Execute(ctx, usecase.SyncLeadsInput{
			PracticeID:   payload.PracticeID,
			PracticeName: payload.PracticeName,
		})
		if result != nil {
			summary = fmt.Sprintf("%d lotes, %d leads, %d requests", result.Pages, result.TotalRecords, result.Requests)
			middleware.RecordPagesFetched("vtiger", result.Pages)
			middleware.RecordRecordsUpserted("vtiger", result.TotalRecords)
		}
		if err != nil {
			middleware.RecordIntegrationError("vtiger")
		}

	case KindCompare:
		var practice *entity.Practice
		practice, err = w.findPractice(ctx, payload)
		if err == nil {
			var result *entity.ComparisonResult
			result, err = w.Compare.Execute(ctx, practice, true)
			if result != nil {
				summary = fmt.Sprintf("%d leads conciliados, %d appointments (confirmados %d, cancelados %d)",
					result.Summary.MatchedLeads, result.Summary.MatchedAppointments,
					result.Summary.Confirmed, result.Summary.Cancelled)
				for _, ml := range result.MatchedLeads {
					if ml.VtigerError != "" {
						middleware.RecordCRMWriteBack("error")
					} else if ml.VtigerUpdated {
						middleware.RecordCRMWriteBack("success")
					}
				}
			}
		}

	default:
		// Job desconhecido: loga e dá ACK para não travar a fila
		log.Printf("⚠️ [WORKER] Tipo de job desconhecido: %s", payload.Kind)
		return nil
	}

	if err != nil {
		return err
	}

	log.Printf("✅ [WORKER] Run %s concluída: %s", payload.RunID, summary)

	if w.Reporter != nil {
		if mailErr := w.Reporter.SendSyncReport(payload.PracticeName, payload.Kind, payload.RunID, summary); mailErr != nil {
			log.Printf("⚠️ [WORKER] Falha ao enviar report por email: %v", mailErr)
		}
	}

	return nil
}

func (w *Worker) findPractice(ctx context.Context, payload SyncJobPayload) (*entity.Practice, error) {
	if payload.PracticeID != "" {
		return w.Practices.FindByID(ctx, payload.PracticeID)
	}
	return w.Practices.FindByName(ctx, payload.PracticeName)
}
