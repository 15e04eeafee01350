package usecase

import (
	"context"

	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
)

// AppointmentSource é uma página da API de appointments.
// Slice vazio = fim dos dados.
type AppointmentSource interface {
	FetchPage(ctx context.Context, page int) ([]intakeq.Appointment, error)
}

// As credenciais são por practice, então os engines recebem factories
// e montam o client na hora da run.
type AppointmentSourceFactory func(apiKey, apiURL string) AppointmentSource

// CRMGateway cobre as três operações do protocolo VTiger que os
// engines usam. A sessão é explícita: quem chama decide quando forçar
// o refresh (e só uma vez por operação).
type CRMGateway interface {
	GetSession(ctx context.Context) (string, error)
	RefreshSession(ctx context.Context) (string, error)
	QueryLeads(ctx context.Context, sessionName string, offset, limit int) (int, *vtiger.Response, []vtiger.LeadRecord, error)
	UpdateLead(ctx context.Context, sessionName, leadID string, fields map[string]string) (int, *vtiger.Response, error)
}

type CRMGatewayFactory func(p *entity.Practice, dataDir string) CRMGateway

// CursorStore persiste o progresso de fetch (página/offset + registros
// acumulados) por practice.
type CursorStore interface {
	PracticeDir(practiceName string) (string, error)
	LoadAppointments(practiceName string) (int, map[string]intakeq.Appointment, error)
	SaveAppointments(practiceName string, lastPage int, records map[string]intakeq.Appointment) error
	LoadLeads(practiceName string) (int, []vtiger.LeadRecord, error)
	SaveLeads(practiceName string, lastOffset int, leads []vtiger.LeadRecord) error
}
