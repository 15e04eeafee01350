package intakeq

import "github.com/xavierca1/practice-sync/internal/entity"

// MapAppointment converte o registro da API para a entidade do banco.
// O nome do contato (paciente) fica em ContactName; o nome da practice
// nunca passa por aqui.
func MapAppointment(a Appointment) entity.Appointment {
	return entity.Appointment{
		IntakeQID: a.ID,

		ContactName:  a.ClientName,
		ContactEmail: a.ClientEmail,
		ContactPhone: a.ClientPhone,

		Status:   a.Status,
		Price:    a.Price,
		Duration: a.Duration,

		StartDate:               a.StartDate,
		EndDate:                 a.EndDate,
		StartDateIso:            a.StartDateIso,
		EndDateIso:              a.EndDateIso,
		StartDateLocal:          a.StartDateLocal,
		EndDateLocal:            a.EndDateLocal,
		StartDateLocalFormatted: a.StartDateLocalFormatted,

		ServiceName:       a.ServiceName,
		ServiceID:         a.ServiceID,
		LocationName:      a.LocationName,
		LocationID:        a.LocationID,
		PractitionerName:  a.PractitionerName,
		PractitionerEmail: a.PractitionerEmail,
		PractitionerID:    a.PractitionerID,
		PlaceOfService:    a.PlaceOfService,

		FullCancellationReason: a.FullCancellationReason,
		CancellationReasonNote: a.CancellationReasonNote,
		CancellationDate:       a.CancellationDate,

		DateCreated:    a.DateCreated,
		LastModified:   a.LastModified,
		BookedByClient: a.BookedByClient,
		CreatedBy:      a.CreatedBy,

		RawData: a.Raw,
	}
}
