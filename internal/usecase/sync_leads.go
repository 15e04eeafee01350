package usecase

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
	"github.com/xavierca1/practice-sync/internal/infra/ratelimit"
)

const (
	DefaultLeadBatchSize     = 50
	DefaultMaxTransientTries = 3 // para 5xx
	DefaultMaxRateLimitTries = 5 // para 429
)

// SyncLeadsUseCase pagina os leads do VTiger por offset/limit.
// Três classes de retentativa, cada uma com política própria:
// auth -> refresh de sessão e uma retentativa; 429 -> backoff
// exponencial; 5xx (e timeout) -> backoff linear.
type SyncLeadsUseCase struct {
	Practices entity.PracticeRepositoryInterface
	Leads     entity.LeadRepositoryInterface
	Cursors   CursorStore
	CRM       CRMGatewayFactory

	BatchSize           int
	SafeDelay           time.Duration // base do backoff e pausa entre páginas
	Jitter              time.Duration
	MaxTransientRetries int
	MaxRateRetries      int
	MaxRequests         int
}

func NewSyncLeadsUseCase(
	practices entity.PracticeRepositoryInterface,
	leads entity.LeadRepositoryInterface,
	cursors CursorStore,
	crm CRMGatewayFactory,
) *SyncLeadsUseCase {
	return &SyncLeadsUseCase{
		Practices:           practices,
		Leads:               leads,
		Cursors:             cursors,
		CRM:                 crm,
		BatchSize:           DefaultLeadBatchSize,
		SafeDelay:           ratelimit.DefaultInterval,
		Jitter:              ratelimit.DefaultJitter,
		MaxTransientRetries: DefaultMaxTransientTries,
		MaxRateRetries:      DefaultMaxRateLimitTries,
		MaxRequests:         ratelimit.DefaultMaxRunShots,
	}
}

func (uc *SyncLeadsUseCase) findPractice(ctx context.Context, input SyncLeadsInput) (*entity.Practice, error) {
	if input.PracticeID != "" {
		return uc.Practices.FindByID(ctx, input.PracticeID)
	}
	if input.PracticeName != "" {
		return uc.Practices.FindByName(ctx, input.PracticeName)
	}
	return nil, fmt.Errorf("practiceId ou clientName é obrigatório")
}

func (uc *SyncLeadsUseCase) Execute(ctx context.Context, input SyncLeadsInput) (*SyncResult, error) {
	practice, err := uc.findPractice(ctx, input)
	if err != nil {
		return nil, err
	}
	if !practice.HasVtigerCredentials() {
		return nil, fmt.Errorf("practice sem credenciais do VTiger (url/username/accessKey)")
	}

	dir, err := uc.Cursors.PracticeDir(practice.Name)
	if err != nil {
		return nil, &PersistenceError{Op: "criar diretório de dados", Err: err}
	}
	gateway := uc.CRM(practice, dir)

	offset, accumulated, err := uc.Cursors.LoadLeads(practice.Name)
	if err != nil {
		return nil, &PersistenceError{Op: "load cursor", Err: err}
	}

	session, err := gateway.GetSession(ctx)
	if err != nil {
		return nil, &AuthError{Message: fmt.Sprintf("login no VTiger falhou: %v", err)}
	}

	budget := ratelimit.NewBudget(uc.MaxRequests)
	result := &SyncResult{
		PracticeID:   practice.ID,
		PracticeName: practice.Name,
		Source:       "vtiger",
		TotalRecords: len(accumulated),
	}

	log.Printf("🔄 Sync de leads %s começando do offset %d", practice.Name, offset)

	for {
		if !budget.Spend() {
			log.Printf("🛑 %s | Teto de requests da run (%d) atingido", practice.Name, uc.MaxRequests)
			result.StoppedByQuota = true
			break
		}

		leads, endOfData, err := uc.fetchBatch(ctx, gateway, &session, offset)
		if err != nil {
			return result, err
		}
		result.Requests++

		if endOfData || len(leads) == 0 {
			log.Printf("✅ %s | Sem mais leads (offset %d)", practice.Name, offset)
			break
		}

		// banco primeiro, cursor depois: crash entre os dois re-busca o
		// offset e o skip-duplicates absorve
		mapped := make([]entity.Lead, 0, len(leads))
		for _, l := range leads {
			mapped = append(mapped, vtiger.MapLead(l))
		}
		if _, err := uc.Leads.BatchInsert(ctx, practice.ID, mapped); err != nil {
			return result, &PersistenceError{Op: fmt.Sprintf("gravar lote no offset %d", offset), Err: err}
		}

		accumulated = append(accumulated, leads...)
		offset += len(leads)

		if err := uc.Cursors.SaveLeads(practice.Name, offset, accumulated); err != nil {
			return result, &PersistenceError{Op: "salvar cursor", Err: err}
		}

		result.Pages++
		result.TotalRecords = len(accumulated)

		log.Printf("✔ %s | Offset %d | %d leads | Total: %d", practice.Name, offset, len(leads), len(accumulated))

		if err := uc.pause(ctx); err != nil {
			return result, err
		}
	}

	log.Printf("🎉 %s | Sync de leads finalizado: %d leads, %d requests", practice.Name, result.TotalRecords, result.Requests)

	return result, nil
}

// fetchBatch busca um lote aplicando as políticas de retentativa.
// Os contadores zeram a cada lote; duas falhas de auth consecutivas no
// mesmo lote são fatais (evita loop infinito de refresh).
func (uc *SyncLeadsUseCase) fetchBatch(ctx context.Context, gateway CRMGateway, session *string, offset int) ([]vtiger.LeadRecord, bool, error) {
	triedRefresh := false
	rateRetries := 0
	transientRetries := 0

	for {
		status, resp, leads, err := gateway.QueryLeads(ctx, *session, offset, uc.batchSize())

		class := vtiger.ClassTransient // erro de rede/timeout conta como 5xx
		if err == nil {
			class = vtiger.Classify(status, resp)
		}

		switch class {
		case vtiger.ClassOK:
			return leads, false, nil

		case vtiger.ClassEndOfData:
			return nil, true, nil

		case vtiger.ClassAuth:
			if triedRefresh {
				return nil, false, &AuthError{Message: fmt.Sprintf("autenticação falhou depois do refresh (status %d)", status)}
			}
			triedRefresh = true
			newSession, err := gateway.RefreshSession(ctx)
			if err != nil {
				return nil, false, &AuthError{Message: fmt.Sprintf("refresh de sessão falhou: %v", err)}
			}
			*session = newSession

		case vtiger.ClassRateLimit:
			rateRetries++
			if rateRetries > uc.MaxRateRetries {
				return nil, false, &RateLimitError{Retries: uc.MaxRateRetries}
			}
			backoff := uc.SafeDelay * (1 << rateRetries)
			if err := uc.sleep(ctx, backoff); err != nil {
				return nil, false, err
			}

		case vtiger.ClassTransient:
			transientRetries++
			if transientRetries > uc.MaxTransientRetries {
				return nil, false, &ServerError{Status: status, Retries: uc.MaxTransientRetries}
			}
			backoff := uc.SafeDelay * time.Duration(transientRetries)
			if err := uc.sleep(ctx, backoff); err != nil {
				return nil, false, err
			}

		default:
			return nil, false, fmt.Errorf("query no VTiger falhou: status=%d resposta inesperada", status)
		}
	}
}

func (uc *SyncLeadsUseCase) batchSize() int {
	if uc.BatchSize <= 0 {
		return DefaultLeadBatchSize
	}
	return uc.BatchSize
}

func (uc *SyncLeadsUseCase) pause(ctx context.Context) error {
	return uc.sleep(ctx, uc.SafeDelay)
}

func (uc *SyncLeadsUseCase) sleep(ctx context.Context, d time.Duration) error {
	if uc.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(uc.Jitter)))
	}
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
