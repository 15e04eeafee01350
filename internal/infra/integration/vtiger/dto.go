package vtiger

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/xavierca1/practice-sync/internal/entity"
)

// Envelope padrão do webservice do VTiger
type Response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Campos custom do CRM que a conciliação escreve
const (
	FieldStage        = "cf_941"
	FieldProcessed    = "cf_943"
	FieldMatchedCount = "cf_945"
	FieldSummaryHTML  = "cf_947"
)

// LeadRecord é o lead cru como o VTiger devolve (tudo string).
type LeadRecord struct {
	ID             string `json:"id"`
	LeadNo         string `json:"lead_no"`
	Salutation     string `json:"salutationtype"`
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Mobile         string `json:"mobile"`
	Company        string `json:"company"`
	LeadSource     string `json:"leadsource"`
	LeadStatus     string `json:"leadstatus"`
	AssignedUserID string `json:"assigned_user_id"`
	Description    string `json:"description"`
	Stage          string `json:"cf_941"`
	Processed      string `json:"cf_943"`
	MatchedCount   string `json:"cf_945"`
	SummaryHTML    string `json:"cf_947"`
	CreatedTime    string `json:"createdtime"`
	ModifiedTime   string `json:"modifiedtime"`

	Raw json.RawMessage `json:"-"`
}

type leadRecordAlias LeadRecord

func (l *LeadRecord) UnmarshalJSON(data []byte) error {
	var alias leadRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*l = LeadRecord(alias)
	l.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (l LeadRecord) MarshalJSON() ([]byte, error) {
	if len(l.Raw) > 0 {
		return l.Raw, nil
	}
	return json.Marshal(leadRecordAlias(l))
}

// MapLead converte o registro cru para a entidade do banco.
func MapLead(r LeadRecord) entity.Lead {
	return entity.Lead{
		VtigerID:       r.ID,
		LeadNo:         r.LeadNo,
		Salutation:     r.Salutation,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Mobile:         r.Mobile,
		Company:        r.Company,
		LeadSource:     r.LeadSource,
		LeadStatus:     r.LeadStatus,
		AssignedUserID: r.AssignedUserID,
		Description:    r.Description,
		Stage:          r.Stage,
		Processed:      r.Processed,
		MatchedCount:   r.MatchedCount,
		SummaryHTML:    r.SummaryHTML,
		CreatedTime:    parseVtigerTime(r.CreatedTime),
		ModifiedTime:   parseVtigerTime(r.ModifiedTime),
		RawData:        r.Raw,
	}
}

// VTiger manda datas como "2024-03-01 14:22:05"
func parseVtigerTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return nil
	}
	return &t
}
