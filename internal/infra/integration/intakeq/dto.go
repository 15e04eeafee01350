package intakeq

import "encoding/json"

// Appointment é o registro como a API do IntakeQ devolve (PascalCase).
// O payload original é guardado verbatim em Raw: o banco e o arquivo de
// cursor preservam o JSON intacto para auditoria/replay.
type Appointment struct {
	ID string `json:"Id"`

	ClientName        string `json:"ClientName"`
	ClientEmail       string `json:"ClientEmail"`
	ClientPhone       string `json:"ClientPhone"`
	ClientDateOfBirth int64  `json:"ClientDateOfBirth"`
	ClientID          int64  `json:"ClientId"`

	Status   string  `json:"Status"`
	Price    float64 `json:"Price"`
	Duration int     `json:"Duration"`

	StartDate               int64  `json:"StartDate"` // epoch ms
	EndDate                 int64  `json:"EndDate"`
	StartDateIso            string `json:"StartDateIso"`
	EndDateIso              string `json:"EndDateIso"`
	StartDateLocal          string `json:"StartDateLocal"`
	EndDateLocal            string `json:"EndDateLocal"`
	StartDateLocalFormatted string `json:"StartDateLocalFormatted"`

	ServiceName       string `json:"ServiceName"`
	ServiceID         string `json:"ServiceId"`
	LocationName      string `json:"LocationName"`
	LocationID        string `json:"LocationId"`
	PractitionerName  string `json:"PractitionerName"`
	PractitionerEmail string `json:"PractitionerEmail"`
	PractitionerID    string `json:"PractitionerId"`
	PlaceOfService    string `json:"PlaceOfService"`

	FullCancellationReason string `json:"FullCancellationReason"`
	CancellationReasonNote string `json:"CancellationReasonNote"`
	CancellationDate       int64  `json:"CancellationDate"`

	DateCreated    int64  `json:"DateCreated"`
	LastModified   int64  `json:"LastModified"`
	BookedByClient bool   `json:"BookedByClient"`
	CreatedBy      string `json:"CreatedBy"`

	Raw json.RawMessage `json:"-"`
}

// alias sem métodos para escapar da recursão de Unmarshal/Marshal
type appointmentAlias Appointment

func (a *Appointment) UnmarshalJSON(data []byte) error {
	var alias appointmentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*a = Appointment(alias)
	a.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON devolve o payload original quando existe, para o arquivo
// de cursor guardar exatamente o que a API mandou.
func (a Appointment) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}
	return json.Marshal(appointmentAlias(a))
}
