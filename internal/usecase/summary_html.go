package usecase

import (
	"html"
	"strings"

	"github.com/xavierca1/practice-sync/internal/entity"
)

// O campo cf_947 do CRM tem limite de armazenamento; estourar corrompe
// o update inteiro. Teto duro em bytes, com degradação em dois passos:
// derruba a linha menos essencial (company) e só então trunca.
const maxSummaryLen = 900

const emptySummaryHTML = "<div><em>Lead details not available</em></div>"

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func summaryRow(label, value string) string {
	return "<div><strong>" + label + ":</strong> " + html.EscapeString(value) + "</div>"
}

// BuildLeadSummaryHTML monta o resumo em HTML que a conciliação grava
// no CRM: só os campos essenciais do lead, todos escapados.
func BuildLeadSummaryHTML(lead *entity.Lead) string {
	var rows []string

	if leadNo := firstNonEmpty(lead.LeadNo); leadNo != "" {
		rows = append(rows, summaryRow("Lead No", leadNo))
	}
	if name := lead.DisplayName(); name != "" {
		rows = append(rows, summaryRow("Name", name))
	}
	if email := firstNonEmpty(lead.Email); email != "" {
		rows = append(rows, summaryRow("Email", email))
	}
	if phone := firstNonEmpty(lead.Mobile, lead.Phone); phone != "" {
		rows = append(rows, summaryRow("Phone", phone))
	}
	if company := firstNonEmpty(lead.Company); company != "" {
		rows = append(rows, summaryRow("Company", company))
	}

	out := emptySummaryHTML
	if len(rows) > 0 {
		out = "<div>" + strings.Join(rows, "") + "</div>"
	}

	if len(out) > maxSummaryLen {
		// company sai primeiro (menos essencial)
		kept := make([]string, 0, len(rows))
		for _, r := range rows {
			if !strings.Contains(r, "Company:") {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			out = "<div>" + strings.Join(kept, "") + "</div>"
		}
	}
	if len(out) > maxSummaryLen {
		out = out[:maxSummaryLen-7] + "..."
	}

	return out
}
