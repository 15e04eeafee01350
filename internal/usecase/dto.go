package usecase

type SyncAppointmentsInput struct {
	PracticeName string `json:"clientName"`
	APIKey       string `json:"apiKey"`
	APIURL       string `json:"apiUrl"`
}

type SyncLeadsInput struct {
	PracticeID   string `json:"practiceId,omitempty"`
	PracticeName string `json:"clientName,omitempty"`
}

// SyncResult resume uma run de sync de qualquer fonte.
type SyncResult struct {
	PracticeID   string `json:"practiceId"`
	PracticeName string `json:"practiceName"`
	Source       string `json:"source"` // "intakeq" | "vtiger"
	Requests     int    `json:"requests"`
	Pages        int    `json:"pages"`
	TotalRecords int    `json:"totalRecords"`
	// true quando a run parou pelo teto de requests (parada suave,
	// retomável) e não por fim dos dados
	StoppedByQuota bool `json:"stoppedByQuota"`
}
