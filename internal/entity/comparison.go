package entity

// Resultado da comparação leads × appointments de uma practice.
// É o contrato consumido pelo dashboard, então os nomes JSON seguem
// o formato que o front já espera.

type ComparisonSummary struct {
	TotalAppointments     int `json:"totalAppointments"`
	TotalLeads            int `json:"totalLeads"`
	MatchedLeads          int `json:"matchedLeads"`
	MatchedAppointments   int `json:"matchedAppointments"`
	UnmatchedAppointments int `json:"unmatchedAppointments"`
	Confirmed             int `json:"confirmed"`
	Cancelled             int `json:"cancelled"`
}

type MatchedLead struct {
	LeadID           string `json:"leadId"`
	VtigerID         string `json:"vtigerId"`
	Email            string `json:"email"`
	AppointmentCount int    `json:"appointmentCount"`
	Confirmed        int    `json:"confirmed"`
	Cancelled        int    `json:"cancelled"`
	VtigerUpdated    bool   `json:"vtigerUpdated"`
	VtigerError      string `json:"vtigerError,omitempty"`
}

type MatchedLeadRef struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	VtigerID  string `json:"vtigerId"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type AppointmentDetail struct {
	ID                      string  `json:"id"`
	IntakeQID               string  `json:"intakeQId"`
	ContactName             string  `json:"clientName"`
	ContactEmail            string  `json:"clientEmail"`
	ContactPhone            string  `json:"clientPhone"`
	Status                  string  `json:"status"`
	NormalizedStatus        string  `json:"normalizedStatus"`
	StartDate               string  `json:"startDate"`
	StartDateLocal          string  `json:"startDateLocal"`
	StartDateLocalFormatted string  `json:"startDateLocalFormatted"`
	EndDateLocal            string  `json:"endDateLocal"`
	Duration                int     `json:"duration"`
	ServiceName             string  `json:"serviceName"`
	PractitionerName        string  `json:"practitionerName"`
	PractitionerEmail       string  `json:"practitionerEmail"`
	LocationName            string  `json:"locationName"`
	PlaceOfService          string  `json:"placeOfService"`
	Price                   float64 `json:"price"`
	FullCancellationReason  string  `json:"fullCancellationReason"`
	CancellationReasonNote  string  `json:"cancellationReasonNote"`
}

type MatchedDetail struct {
	Lead         MatchedLeadRef      `json:"lead"`
	Appointments []AppointmentDetail `json:"appointments"`
}

type ComparisonResult struct {
	Success        bool              `json:"success"`
	PracticeID     string            `json:"practiceId"`
	PracticeName   string            `json:"practiceName"`
	Summary        ComparisonSummary `json:"summary"`
	MatchedLeads   []MatchedLead     `json:"matchedLeads"`
	MatchedDetails []MatchedDetail   `json:"matchedDetails"`
}
