package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
)

func syncInput() SyncAppointmentsInput {
	return SyncAppointmentsInput{
		PracticeName: "Sunrise Clinic",
		APIKey:       "key-1",
		APIURL:       "https://intakeq.example.com/api/v1/appointments",
	}
}

func sunrisePractice() *entity.Practice {
	return &entity.Practice{ID: "prac-1", Name: "Sunrise Clinic", IntakeQKey: "key-1"}
}

func appointmentSyncFixture(source AppointmentSource) (*SyncAppointmentsUseCase, *MockPracticeRepository, *MockAppointmentRepository, *MockCursorStore) {
	practices := new(MockPracticeRepository)
	appointments := new(MockAppointmentRepository)
	cursors := new(MockCursorStore)

	uc := NewSyncAppointmentsUseCase(practices, appointments, cursors, func(apiKey, apiURL string) AppointmentSource {
		return source
	})
	return uc, practices, appointments, cursors
}

func TestSyncAppointments_ValidatesInput(t *testing.T) {
	uc, _, _, _ := appointmentSyncFixture(nil)

	_, err := uc.Execute(context.Background(), SyncAppointmentsInput{PracticeName: "x"})
	assert.Error(t, err)
}

func TestSyncAppointments_PaginatesAndDeduplicates(t *testing.T) {
	source := new(MockAppointmentSource)
	uc, practices, appointments, cursors := appointmentSyncFixture(source)

	practices.On("UpsertByIntakeQKey", mock.Anything, "Sunrise Clinic", "key-1").Return(sunrisePractice(), nil)
	cursors.On("LoadAppointments", "Sunrise Clinic").Return(0, map[string]intakeq.Appointment{}, nil)

	// iq2 repete na página 2: o mapa por Id absorve
	source.On("FetchPage", mock.Anything, 1).Return([]intakeq.Appointment{
		{ID: "iq1", ClientEmail: "a@example.com"},
		{ID: "iq2", ClientEmail: "b@example.com"},
	}, nil)
	source.On("FetchPage", mock.Anything, 2).Return([]intakeq.Appointment{
		{ID: "iq2", ClientEmail: "b@example.com"},
		{ID: "iq3", ClientEmail: "c@example.com"},
	}, nil)
	source.On("FetchPage", mock.Anything, 3).Return([]intakeq.Appointment{}, nil)

	appointments.On("BatchUpsert", mock.Anything, "prac-1", mock.Anything).Return(2, nil)
	cursors.On("SaveAppointments", "Sunrise Clinic", 1, mock.Anything).Return(nil)
	cursors.On("SaveAppointments", "Sunrise Clinic", 2, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), syncInput())
	assert.NoError(t, err)

	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 3, result.TotalRecords)
	assert.False(t, result.StoppedByQuota)
	assert.Equal(t, "intakeq", result.Source)
	source.AssertExpectations(t)
	cursors.AssertExpectations(t)
}

func TestSyncAppointments_ResumesFromCursor(t *testing.T) {
	source := new(MockAppointmentSource)
	uc, practices, _, cursors := appointmentSyncFixture(source)

	practices.On("UpsertByIntakeQKey", mock.Anything, "Sunrise Clinic", "key-1").Return(sunrisePractice(), nil)
	cursors.On("LoadAppointments", "Sunrise Clinic").Return(3, map[string]intakeq.Appointment{
		"iq1": {ID: "iq1"},
	}, nil)

	// retoma da página seguinte à última completada
	source.On("FetchPage", mock.Anything, 4).Return([]intakeq.Appointment{}, nil)

	result, err := uc.Execute(context.Background(), syncInput())
	assert.NoError(t, err)

	assert.Equal(t, 0, result.Pages)
	assert.Equal(t, 1, result.TotalRecords)
	source.AssertExpectations(t)
}

func TestSyncAppointments_StopsAtRequestQuota(t *testing.T) {
	source := new(MockAppointmentSource)
	uc, practices, appointments, cursors := appointmentSyncFixture(source)
	uc.MaxRequests = 2

	practices.On("UpsertByIntakeQKey", mock.Anything, "Sunrise Clinic", "key-1").Return(sunrisePractice(), nil)
	cursors.On("LoadAppointments", "Sunrise Clinic").Return(0, map[string]intakeq.Appointment{}, nil)

	source.On("FetchPage", mock.Anything, mock.Anything).Return([]intakeq.Appointment{
		{ID: "iq1"},
	}, nil)
	appointments.On("BatchUpsert", mock.Anything, "prac-1", mock.Anything).Return(1, nil)
	cursors.On("SaveAppointments", "Sunrise Clinic", mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), syncInput())
	assert.NoError(t, err)

	// parada suave: a run fecha limpa e o cursor permite retomar
	assert.True(t, result.StoppedByQuota)
	assert.Equal(t, 2, result.Requests)
	source.AssertNumberOfCalls(t, "FetchPage", 2)
}

func TestSyncAppointments_PersistenceFailureIsFatal(t *testing.T) {
	source := new(MockAppointmentSource)
	uc, practices, appointments, cursors := appointmentSyncFixture(source)

	practices.On("UpsertByIntakeQKey", mock.Anything, "Sunrise Clinic", "key-1").Return(sunrisePractice(), nil)
	cursors.On("LoadAppointments", "Sunrise Clinic").Return(0, map[string]intakeq.Appointment{}, nil)

	source.On("FetchPage", mock.Anything, 1).Return([]intakeq.Appointment{{ID: "iq1"}}, nil)
	appointments.On("BatchUpsert", mock.Anything, "prac-1", mock.Anything).Return(0, errors.New("db down"))

	_, err := uc.Execute(context.Background(), syncInput())

	assert.True(t, IsPersistenceError(err))
	// o cursor não avança quando o banco falhou
	cursors.AssertNotCalled(t, "SaveAppointments", mock.Anything, mock.Anything, mock.Anything)
}
