package entity

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Entidade: Lead (registro vindo do VTiger)
type Lead struct {
	ID         string `json:"id"`
	PracticeID string `json:"practice_id"`

	// Id estável do CRM (ex: "10x1234")
	VtigerID string `json:"vtigerId"`
	LeadNo   string `json:"lead_no,omitempty"`

	Salutation string `json:"salutationtype,omitempty"`
	FirstName  string `json:"firstname,omitempty"`
	LastName   string `json:"lastname,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	Company    string `json:"company,omitempty"`

	LeadSource     string `json:"leadsource,omitempty"`
	LeadStatus     string `json:"leadstatus,omitempty"`
	AssignedUserID string `json:"assigned_user_id,omitempty"`
	Description    string `json:"description,omitempty"`

	// Campos custom do CRM que a comparação escreve de volta:
	// Stage (cf_941), Processed (cf_943, "yes" quando conciliado),
	// MatchedCount (cf_945) e SummaryHTML (cf_947, limitado em bytes).
	Stage        string `json:"cf_941,omitempty"`
	Processed    string `json:"cf_943,omitempty"`
	MatchedCount string `json:"cf_945,omitempty"`
	SummaryHTML  string `json:"cf_947,omitempty"`

	CreatedTime  *time.Time `json:"createdtime,omitempty"`
	ModifiedTime *time.Time `json:"modifiedtime,omitempty"`

	// Payload original intacto
	RawData json.RawMessage `json:"rawData,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName monta o nome completo como o CRM exibe
func (l *Lead) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Salutation, l.FirstName, l.LastName} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

type LeadRepositoryInterface interface {
	// BatchInsert grava um lote; duplicados por (practice_id, vtiger_id)
	// são pulados (skip duplicates).
	BatchInsert(ctx context.Context, practiceID string, leads []Lead) (int, error)
	ListByPractice(ctx context.Context, practiceID string) ([]Lead, error)
	ListPage(ctx context.Context, practiceID string, limit, offset int) ([]Lead, int, error)
	ListEmailsByPractice(ctx context.Context, practiceID string) ([]string, error)
	// UpdateReconcileFields grava o resultado da comparação no banco local
	UpdateReconcileFields(ctx context.Context, id, processed, matchedCount, summaryHTML string) error
}
