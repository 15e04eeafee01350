package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
)

// CompareUseCase junta leads e appointments de uma practice por email
// normalizado, calcula os totais de confirmados/cancelados e,
// opcionalmente, grava o resultado de volta no CRM.
//
// Modo read-only (writeBack=false) não abre sessão no CRM e não toca
// em nada — é o que o dashboard usa para navegar.
type CompareUseCase struct {
	Appointments entity.AppointmentRepositoryInterface
	Leads        entity.LeadRepositoryInterface
	Cursors      CursorStore
	CRM          CRMGatewayFactory
}

func NewCompareUseCase(
	appointments entity.AppointmentRepositoryInterface,
	leads entity.LeadRepositoryInterface,
	cursors CursorStore,
	crm CRMGatewayFactory,
) *CompareUseCase {
	return &CompareUseCase{
		Appointments: appointments,
		Leads:        leads,
		Cursors:      cursors,
		CRM:          crm,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isConfirmedStatus(s string) bool {
	n := normalizeStatus(s)
	return n == "confirmed" || n == "confirm" || strings.HasPrefix(n, "confirmed") || n == "attended"
}

// pega 'canceled', 'cancelled', 'missed', 'no-show' e variações
func isCancelledStatus(s string) bool {
	n := normalizeStatus(s)
	return strings.Contains(n, "cancel") ||
		n == "missed" ||
		strings.Contains(n, "no-show") ||
		strings.Contains(n, "no show") ||
		strings.Contains(n, "no_show") ||
		strings.Contains(n, "miss")
}

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// dateOnly extrai só a data de uma string de data/hora da fonte:
// "12/1/2026 at 01:00:00 PM" -> "12/1/2026"; ISO -> "2026-12-01".
func dateOnly(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	if idx := strings.Index(strings.ToLower(s), " at "); idx > 0 {
		return strings.TrimSpace(s[:idx])
	}
	if isoDatePrefix.MatchString(s) {
		return s[:10]
	}
	return s
}

// formatStartDate segue a cadeia de fallback entre as representações
// de data preservadas do payload original.
func formatStartDate(a *entity.Appointment) string {
	preferred := firstNonEmpty(a.StartDateLocalFormatted, a.StartDateLocal, a.StartDateIso)
	if d := dateOnly(preferred); d != "" {
		return d
	}
	if a.StartDate > 0 {
		return time.UnixMilli(a.StartDate).UTC().Format("1/2/2006")
	}
	return ""
}

func (uc *CompareUseCase) Execute(ctx context.Context, practice *entity.Practice, writeBack bool) (*entity.ComparisonResult, error) {
	appointments, err := uc.Appointments.ListByPractice(ctx, practice.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "listar appointments", Err: err}
	}
	leads, err := uc.Leads.ListByPractice(ctx, practice.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "listar leads", Err: err}
	}

	// email normalizado -> appointments (ordem de inserção preservada)
	emailToAppointments := make(map[string][]entity.Appointment)
	for _, appt := range appointments {
		email := normalizeEmail(appt.ContactEmail)
		if email == "" {
			continue
		}
		emailToAppointments[email] = append(emailToAppointments[email], appt)
	}

	var gateway CRMGateway
	var session string
	if writeBack {
		if !practice.HasVtigerCredentials() {
			return nil, fmt.Errorf("practice sem credenciais do VTiger")
		}
		dir, err := uc.Cursors.PracticeDir(practice.Name)
		if err != nil {
			return nil, &PersistenceError{Op: "criar diretório de dados", Err: err}
		}
		gateway = uc.CRM(practice, dir)
		if session, err = gateway.GetSession(ctx); err != nil {
			return nil, &AuthError{Message: fmt.Sprintf("login no VTiger falhou: %v", err)}
		}
	}

	result := &entity.ComparisonResult{
		Success:        true,
		PracticeID:     practice.ID,
		PracticeName:   practice.Name,
		MatchedLeads:   []entity.MatchedLead{},
		MatchedDetails: []entity.MatchedDetail{},
	}
	result.Summary.TotalAppointments = len(appointments)
	result.Summary.TotalLeads = len(leads)

	claimed := make(map[string]bool) // appointment ids já atribuídos

	for i := range leads {
		lead := &leads[i]

		leadEmail := normalizeEmail(lead.Email)
		if leadEmail == "" {
			continue
		}
		candidates, ok := emailToAppointments[leadEmail]
		if !ok {
			continue
		}

		// appointments já contados por um lead anterior ficam com ele:
		// o primeiro lead na ordem de iteração vence
		matched := make([]entity.Appointment, 0, len(candidates))
		for _, a := range candidates {
			if claimed[a.ID] {
				continue
			}
			claimed[a.ID] = true
			matched = append(matched, a)
		}
		if len(matched) == 0 {
			continue
		}

		confirmed := 0
		cancelled := 0
		for _, a := range matched {
			if isConfirmedStatus(a.Status) {
				confirmed++
			}
			if isCancelledStatus(a.Status) {
				cancelled++
			}
		}

		result.Summary.MatchedAppointments += len(matched)
		result.Summary.Confirmed += confirmed
		result.Summary.Cancelled += cancelled

		summaryHTML := BuildLeadSummaryHTML(lead)

		vtigerUpdated := false
		vtigerError := ""

		if writeBack {
			newCount := strconv.Itoa(len(matched))
			needsUpdate := strings.ToLower(strings.TrimSpace(lead.Processed)) != "yes" ||
				strings.TrimSpace(lead.MatchedCount) != newCount ||
				strings.TrimSpace(lead.SummaryHTML) != strings.TrimSpace(summaryHTML)

			if !needsUpdate {
				// já está correto no CRM; repetir a run não gera update
				vtigerUpdated = true
			} else {
				if err := uc.updateCRM(ctx, gateway, &session, lead, newCount, summaryHTML); err != nil {
					vtigerError = err.Error()
					log.Printf("❌ Update no VTiger falhou para o lead %s: %v", lead.VtigerID, err)
				} else {
					vtigerUpdated = true
				}

				// o banco local sempre reflete o valor calculado, mesmo
				// quando o CRM falhou — a próxima run reconcilia
				if err := uc.Leads.UpdateReconcileFields(ctx, lead.ID, "yes", newCount, summaryHTML); err != nil {
					log.Printf("⚠️ Falha ao atualizar lead %s no banco local: %v", lead.ID, err)
				}
			}
		}

		result.MatchedLeads = append(result.MatchedLeads, entity.MatchedLead{
			LeadID:           lead.ID,
			VtigerID:         lead.VtigerID,
			Email:            lead.Email,
			AppointmentCount: len(matched),
			Confirmed:        confirmed,
			Cancelled:        cancelled,
			VtigerUpdated:    vtigerUpdated,
			VtigerError:      vtigerError,
		})

		details := make([]entity.AppointmentDetail, 0, len(matched))
		for i := range matched {
			a := &matched[i]
			details = append(details, entity.AppointmentDetail{
				ID:                      a.ID,
				IntakeQID:               a.IntakeQID,
				ContactName:             a.ContactName,
				ContactEmail:            a.ContactEmail,
				ContactPhone:            a.ContactPhone,
				Status:                  a.Status,
				NormalizedStatus:        normalizeStatus(a.Status),
				StartDate:               formatStartDate(a),
				StartDateLocal:          a.StartDateLocal,
				StartDateLocalFormatted: a.StartDateLocalFormatted,
				EndDateLocal:            a.EndDateLocal,
				Duration:                a.Duration,
				ServiceName:             a.ServiceName,
				PractitionerName:        a.PractitionerName,
				PractitionerEmail:       a.PractitionerEmail,
				LocationName:            a.LocationName,
				PlaceOfService:          a.PlaceOfService,
				Price:                   a.Price,
				FullCancellationReason:  a.FullCancellationReason,
				CancellationReasonNote:  a.CancellationReasonNote,
			})
		}
		result.MatchedDetails = append(result.MatchedDetails, entity.MatchedDetail{
			Lead: entity.MatchedLeadRef{
				ID:        lead.ID,
				Email:     lead.Email,
				VtigerID:  lead.VtigerID,
				FirstName: lead.FirstName,
				LastName:  lead.LastName,
			},
			Appointments: details,
		})
	}

	result.Summary.MatchedLeads = len(result.MatchedLeads)
	result.Summary.UnmatchedAppointments = result.Summary.TotalAppointments - result.Summary.MatchedAppointments

	return result, nil
}

// updateCRM tenta o update do lead; em falha de autenticação descarta
// a sessão, reloga e tenta exatamente mais uma vez. A segunda falha é
// registrada no lead, não derruba a run dos outros.
func (uc *CompareUseCase) updateCRM(ctx context.Context, gateway CRMGateway, session *string, lead *entity.Lead, matchedCount, summaryHTML string) error {
	fields := map[string]string{
		"firstname":              lead.FirstName,
		"lastname":               lead.LastName,
		"company":                lead.Company,
		vtiger.FieldStage:        firstNonEmpty(lead.Stage, "Pending"),
		vtiger.FieldProcessed:    "yes",
		vtiger.FieldMatchedCount: matchedCount,
		vtiger.FieldSummaryHTML:  summaryHTML,
	}
	if lead.AssignedUserID != "" {
		fields["assigned_user_id"] = lead.AssignedUserID
	}

	status, resp, err := gateway.UpdateLead(ctx, *session, lead.VtigerID, fields)
	if err != nil {
		return err
	}

	class := vtiger.Classify(status, resp)
	if class == vtiger.ClassOK {
		return nil
	}
	if class != vtiger.ClassAuth {
		return updateFailure(status, resp)
	}

	newSession, err := gateway.RefreshSession(ctx)
	if err != nil {
		return &AuthError{Message: fmt.Sprintf("refresh de sessão falhou: %v", err)}
	}
	*session = newSession

	status, resp, err = gateway.UpdateLead(ctx, *session, lead.VtigerID, fields)
	if err != nil {
		return err
	}
	if vtiger.Classify(status, resp) == vtiger.ClassOK {
		return nil
	}
	return updateFailure(status, resp)
}

func updateFailure(status int, resp *vtiger.Response) error {
	if resp != nil && resp.Error != nil {
		return fmt.Errorf("update no VTiger falhou: %s", resp.Error.Message)
	}
	return fmt.Errorf("update no VTiger falhou: status %d", status)
}
