package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xavierca1/practice-sync/internal/entity"
)

type AppointmentRepository struct {
	DB *sql.DB
}

func NewAppointmentRepository(db *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

// BatchUpsert grava uma página inteira numa única instrução.
// Conflito por (practice_id, intakeq_id) sobrescreve — re-buscar uma
// página já vista é idempotente.
func (r *AppointmentRepository) BatchUpsert(ctx context.Context, practiceID string, appts []entity.Appointment) (int, error) {
	if len(appts) == 0 {
		return 0, nil
	}

	const cols = 28
	placeholders := make([]string, 0, len(appts))
	args := make([]any, 0, len(appts)*cols)

	for i, a := range appts {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		args = append(args,
			uuid.New().String(), practiceID, a.IntakeQID,
			a.ContactName, a.ContactEmail, a.ContactPhone,
			a.Status, a.Price, a.Duration,
			a.StartDate, a.EndDate,
			a.StartDateIso, a.EndDateIso,
			a.StartDateLocal, a.EndDateLocal, a.StartDateLocalFormatted,
			a.ServiceName, a.ServiceID, a.LocationName, a.LocationID,
			a.PractitionerName, a.PractitionerEmail, a.PractitionerID,
			a.PlaceOfService,
			a.FullCancellationReason, a.CancellationReasonNote,
			a.CancellationDate, []byte(a.RawData),
		)
	}

	query := `
		INSERT INTO appointments (
			id, practice_id, intakeq_id,
			contact_name, contact_email, contact_phone,
			status, price, duration,
			start_date, end_date,
			start_date_iso, end_date_iso,
			start_date_local, end_date_local, start_date_local_formatted,
			service_name, service_id, location_name, location_id,
			practitioner_name, practitioner_email, practitioner_id,
			place_of_service,
			full_cancellation_reason, cancellation_reason_note,
			cancellation_date, raw_data
		)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (practice_id, intakeq_id)
		DO UPDATE SET
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			status = EXCLUDED.status,
			price = EXCLUDED.price,
			duration = EXCLUDED.duration,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			start_date_iso = EXCLUDED.start_date_iso,
			end_date_iso = EXCLUDED.end_date_iso,
			start_date_local = EXCLUDED.start_date_local,
			end_date_local = EXCLUDED.end_date_local,
			start_date_local_formatted = EXCLUDED.start_date_local_formatted,
			service_name = EXCLUDED.service_name,
			location_name = EXCLUDED.location_name,
			practitioner_name = EXCLUDED.practitioner_name,
			practitioner_email = EXCLUDED.practitioner_email,
			place_of_service = EXCLUDED.place_of_service,
			full_cancellation_reason = EXCLUDED.full_cancellation_reason,
			cancellation_reason_note = EXCLUDED.cancellation_reason_note,
			cancellation_date = EXCLUDED.cancellation_date,
			raw_data = EXCLUDED.raw_data,
			updated_at = NOW()
	`

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

const appointmentColumns = `
	id, practice_id, intakeq_id,
	COALESCE(contact_name, ''), COALESCE(contact_email, ''), COALESCE(contact_phone, ''),
	COALESCE(status, ''), COALESCE(price, 0), COALESCE(duration, 0),
	COALESCE(start_date, 0), COALESCE(end_date, 0),
	COALESCE(start_date_iso, ''), COALESCE(end_date_iso, ''),
	COALESCE(start_date_local, ''), COALESCE(end_date_local, ''), COALESCE(start_date_local_formatted, ''),
	COALESCE(service_name, ''), COALESCE(service_id, ''), COALESCE(location_name, ''), COALESCE(location_id, ''),
	COALESCE(practitioner_name, ''), COALESCE(practitioner_email, ''), COALESCE(practitioner_id, ''),
	COALESCE(place_of_service, ''),
	COALESCE(full_cancellation_reason, ''), COALESCE(cancellation_reason_note, ''),
	COALESCE(cancellation_date, 0), COALESCE(raw_data, 'null'),
	created_at, updated_at
`

func scanAppointment(rows *sql.Rows) (*entity.Appointment, error) {
	var a entity.Appointment
	var raw []byte
	err := rows.Scan(
		&a.ID, &a.PracticeID, &a.IntakeQID,
		&a.ContactName, &a.ContactEmail, &a.ContactPhone,
		&a.Status, &a.Price, &a.Duration,
		&a.StartDate, &a.EndDate,
		&a.StartDateIso, &a.EndDateIso,
		&a.StartDateLocal, &a.EndDateLocal, &a.StartDateLocalFormatted,
		&a.ServiceName, &a.ServiceID, &a.LocationName, &a.LocationID,
		&a.PractitionerName, &a.PractitionerEmail, &a.PractitionerID,
		&a.PlaceOfService,
		&a.FullCancellationReason, &a.CancellationReasonNote,
		&a.CancellationDate, &raw,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.RawData = raw
	return &a, nil
}

func (r *AppointmentRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]entity.Appointment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) ListByPractice(ctx context.Context, practiceID string) ([]entity.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE practice_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryAppointments(ctx, query, practiceID)
}

func (r *AppointmentRepository) ListPage(ctx context.Context, practiceID string, limit, offset int) ([]entity.Appointment, int, error) {
	total, err := r.CountByPractice(ctx, practiceID)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE practice_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	appts, err := r.queryAppointments(ctx, query, practiceID, limit, offset)
	return appts, total, err
}

func (r *AppointmentRepository) CountByPractice(ctx context.Context, practiceID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments WHERE practice_id = $1`, practiceID).Scan(&n)
	return n, err
}

func (r *AppointmentRepository) LastSyncedAt(ctx context.Context, practiceID string) (*time.Time, error) {
	var last sql.NullTime
	err := r.DB.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM appointments WHERE practice_id = $1`, practiceID).Scan(&last)
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// CountByPracticeAndEmails conta appointments cujo email do contato
// aparece na lista (estatística de match da listagem de practices).
func (r *AppointmentRepository) CountByPracticeAndEmails(ctx context.Context, practiceID string, emails []string) (int, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	var n int
	query := `SELECT COUNT(*) FROM appointments WHERE practice_id = $1 AND LOWER(TRIM(contact_email)) = ANY($2)`
	err := r.DB.QueryRowContext(ctx, query, practiceID, pq.Array(emails)).Scan(&n)
	return n, err
}
