package mail

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"
)

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// SendSyncReport envia o resumo de uma run de sync para o email de
// operação configurado.
func (s *EmailSender) SendSyncReport(practiceName, kind, runID, summary string) error {
	data := SyncReportData{
		PracticeName: practiceName,
		Kind:         kind,
		RunID:        runID,
		Summary:      summary,
		FinishedAt:   time.Now().Format("02/01/2006 15:04:05"),
	}

	tmplPath := filepath.Join("templates", "sync_report.html")
	t, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("erro ao ler template de email: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("erro ao processar template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("Sync %s concluído: %s ✅", kind, practiceName))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	return nil
}
