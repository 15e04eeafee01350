package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/practice-sync/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

// BatchInsert grava um lote de leads; duplicados por
// (practice_id, vtiger_id) são pulados (skip duplicates), já que os
// offsets do VTiger não se sobrepõem dentro de uma run.
func (r *LeadRepository) BatchInsert(ctx context.Context, practiceID string, leads []entity.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	const cols = 23
	placeholders := make([]string, 0, len(leads))
	args := make([]any, 0, len(leads)*cols)

	for i, l := range leads {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		args = append(args,
			uuid.New().String(), practiceID, l.VtigerID, l.LeadNo,
			l.Salutation, l.FirstName, l.LastName,
			l.Email, l.Phone, l.Mobile, l.Company,
			l.LeadSource, l.LeadStatus, l.AssignedUserID, l.Description,
			l.Stage, l.Processed, l.MatchedCount, l.SummaryHTML,
			nullTime(l.CreatedTime), nullTime(l.ModifiedTime),
			[]byte(l.RawData), "CRM",
		)
	}

	query := `
		INSERT INTO leads (
			id, practice_id, vtiger_id, lead_no,
			salutation, first_name, last_name,
			email, phone, mobile, company,
			lead_source, lead_status, assigned_user_id, description,
			stage, processed, matched_count, summary_html,
			created_time, modified_time,
			raw_data, source
		)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (practice_id, vtiger_id) DO NOTHING
	`

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func nullTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

const leadColumns = `
	id, practice_id, vtiger_id, COALESCE(lead_no, ''),
	COALESCE(salutation, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(mobile, ''), COALESCE(company, ''),
	COALESCE(lead_source, ''), COALESCE(lead_status, ''), COALESCE(assigned_user_id, ''), COALESCE(description, ''),
	COALESCE(stage, ''), COALESCE(processed, ''), COALESCE(matched_count, ''), COALESCE(summary_html, ''),
	created_time, modified_time, COALESCE(raw_data, 'null'),
	created_at, updated_at
`

func scanLead(rows *sql.Rows) (*entity.Lead, error) {
	var l entity.Lead
	var raw []byte
	var createdTime, modifiedTime sql.NullTime
	err := rows.Scan(
		&l.ID, &l.PracticeID, &l.VtigerID, &l.LeadNo,
		&l.Salutation, &l.FirstName, &l.LastName,
		&l.Email, &l.Phone, &l.Mobile, &l.Company,
		&l.LeadSource, &l.LeadStatus, &l.AssignedUserID, &l.Description,
		&l.Stage, &l.Processed, &l.MatchedCount, &l.SummaryHTML,
		&createdTime, &modifiedTime, &raw,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdTime.Valid {
		l.CreatedTime = &createdTime.Time
	}
	if modifiedTime.Valid {
		l.ModifiedTime = &modifiedTime.Time
	}
	l.RawData = raw
	return &l, nil
}

func (r *LeadRepository) queryLeads(ctx context.Context, query string, args ...any) ([]entity.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// ListByPractice devolve os leads na ordem de inserção: a comparação
// depende dessa ordem para a atribuição first-match-wins ser estável.
func (r *LeadRepository) ListByPractice(ctx context.Context, practiceID string) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE practice_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryLeads(ctx, query, practiceID)
}

func (r *LeadRepository) ListPage(ctx context.Context, practiceID string, limit, offset int) ([]entity.Lead, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE practice_id = $1`, practiceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE practice_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	leads, err := r.queryLeads(ctx, query, practiceID, limit, offset)
	return leads, total, err
}

func (r *LeadRepository) ListEmailsByPractice(ctx context.Context, practiceID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT LOWER(TRIM(COALESCE(email, ''))) FROM leads WHERE practice_id = $1`, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		if s := strings.TrimSpace(e); s != "" {
			emails = append(emails, s)
		}
	}
	return emails, rows.Err()
}

func (r *LeadRepository) UpdateReconcileFields(ctx context.Context, id, processed, matchedCount, summaryHTML string) error {
	query := `
		UPDATE leads
		SET processed = $2, matched_count = $3, summary_html = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.ExecContext(ctx, query, id, processed, matchedCount, summaryHTML)
	return err
}
