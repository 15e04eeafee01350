package mail

type SyncReportData struct {
	PracticeName string
	Kind         string
	RunID        string
	Summary      string
	FinishedAt   string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}
