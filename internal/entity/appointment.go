package entity

import (
	"context"
	"encoding/json"
	"time"
)

// Entidade: Appointment (registro vindo do IntakeQ)
//
// As várias representações de data (epoch, ISO, local, formatada) são
// preservadas exatamente como a API devolve: a comparação e o dashboard
// usam cadeias de fallback entre elas.
type Appointment struct {
	ID         string `json:"id"`
	PracticeID string `json:"practice_id"`

	// Id estável da fonte (chave de dedup/upsert)
	IntakeQID string `json:"intakeQId"`

	// Contato (paciente) — nunca confundir com o nome da practice!
	ContactName  string `json:"clientName"`
	ContactEmail string `json:"clientEmail"`
	ContactPhone string `json:"clientPhone"`

	Status   string  `json:"status"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"`

	StartDate               int64  `json:"startDate"` // epoch ms
	EndDate                 int64  `json:"endDate"`
	StartDateIso            string `json:"startDateIso"`
	EndDateIso              string `json:"endDateIso"`
	StartDateLocal          string `json:"startDateLocal"`
	EndDateLocal            string `json:"endDateLocal"`
	StartDateLocalFormatted string `json:"startDateLocalFormatted"`

	ServiceName       string `json:"serviceName"`
	ServiceID         string `json:"serviceId"`
	LocationName      string `json:"locationName"`
	LocationID        string `json:"locationId"`
	PractitionerName  string `json:"practitionerName"`
	PractitionerEmail string `json:"practitionerEmail"`
	PractitionerID    string `json:"practitionerId"`
	PlaceOfService    string `json:"placeOfService"`

	FullCancellationReason string `json:"fullCancellationReason"`
	CancellationReasonNote string `json:"cancellationReasonNote"`
	CancellationDate       int64  `json:"cancellationDate"`

	DateCreated    int64  `json:"dateCreated"`
	LastModified   int64  `json:"lastModified"`
	BookedByClient bool   `json:"bookedByClient"`
	CreatedBy      string `json:"createdBy"`

	// Payload original intacto (auditoria/replay)
	RawData json.RawMessage `json:"rawData,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AppointmentRepositoryInterface interface {
	// BatchUpsert grava uma página inteira; conflito por
	// (practice_id, intakeq_id) sobrescreve (last-write-wins).
	BatchUpsert(ctx context.Context, practiceID string, appts []Appointment) (int, error)
	ListByPractice(ctx context.Context, practiceID string) ([]Appointment, error)
	ListPage(ctx context.Context, practiceID string, limit, offset int) ([]Appointment, int, error)
	CountByPractice(ctx context.Context, practiceID string) (int, error)
	CountByPracticeAndEmails(ctx context.Context, practiceID string, emails []string) (int, error)
	// LastSyncedAt devolve o updated_at mais recente (nil sem registros)
	LastSyncedAt(ctx context.Context, practiceID string) (*time.Time, error)
}
