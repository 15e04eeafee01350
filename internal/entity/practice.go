package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	// IMPORTANTE: NÃO adicione imports de usecase ou infra aqui!
)

// Entidade: Practice (a clínica/tenant dona dos dados sincronizados)
type Practice struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Credenciais da fonte de agendamentos (IntakeQ)
	IntakeQKey     string `json:"intakeq_key"`
	IntakeQBaseURL string `json:"intakeq_base_url"`

	// Credenciais do CRM (VTiger)
	VtigerURL       string `json:"vtiger_url"`
	VtigerUsername  string `json:"vtiger_username"`
	VtigerAccessKey string `json:"vtiger_access_key"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Estatísticas agregadas por practice (listagem do dashboard)
type PracticeStats struct {
	TotalAppointments     int        `json:"totalAppointments"`
	TotalLeads            int        `json:"totalLeads"`
	MatchedAppointments   int        `json:"matchedAppointments"`
	UnmatchedAppointments int        `json:"unmatchedAppointments"`
	LastFetch             *time.Time `json:"lastFetch,omitempty"`
}

// Factory
func NewPractice(name, intakeQKey, intakeQBaseURL string) (*Practice, error) {
	p := &Practice{
		ID:             uuid.New().String(),
		Name:           name,
		IntakeQKey:     intakeQKey,
		IntakeQBaseURL: intakeQBaseURL,
		Active:         true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Practice) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.IntakeQKey == "" {
		return errors.New("intakeq key is required")
	}
	return nil
}

// HasVtigerCredentials diz se a practice pode falar com o CRM
func (p *Practice) HasVtigerCredentials() bool {
	return p.VtigerURL != "" && p.VtigerUsername != "" && p.VtigerAccessKey != ""
}

type PracticeRepositoryInterface interface {
	Create(ctx context.Context, p *Practice) error
	// UpsertByIntakeQKey garante a practice pela chave de credencial
	// (a identidade durável), nunca pelo nome de exibição.
	UpsertByIntakeQKey(ctx context.Context, name, intakeQKey string) (*Practice, error)
	FindByID(ctx context.Context, id string) (*Practice, error)
	FindByName(ctx context.Context, name string) (*Practice, error)
	List(ctx context.Context) ([]Practice, error)
	UpdateVtigerCredentials(ctx context.Context, id, url, username, accessKey string) (*Practice, error)
	UpdateIntakeQCredentials(ctx context.Context, id, key, baseURL string) (*Practice, error)
}
