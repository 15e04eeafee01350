package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
)

// MockPracticeRepository
type MockPracticeRepository struct {
	mock.Mock
}

func (m *MockPracticeRepository) Create(ctx context.Context, p *entity.Practice) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPracticeRepository) UpsertByIntakeQKey(ctx context.Context, name, intakeQKey string) (*entity.Practice, error) {
	args := m.Called(ctx, name, intakeQKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Practice), args.Error(1)
}

func (m *MockPracticeRepository) FindByID(ctx context.Context, id string) (*entity.Practice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Practice), args.Error(1)
}

func (m *MockPracticeRepository) FindByName(ctx context.Context, name string) (*entity.Practice, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Practice), args.Error(1)
}

func (m *MockPracticeRepository) List(ctx context.Context) ([]entity.Practice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Practice), args.Error(1)
}

func (m *MockPracticeRepository) UpdateVtigerCredentials(ctx context.Context, id, url, username, accessKey string) (*entity.Practice, error) {
	args := m.Called(ctx, id, url, username, accessKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Practice), args.Error(1)
}

func (m *MockPracticeRepository) UpdateIntakeQCredentials(ctx context.Context, id, key, baseURL string) (*entity.Practice, error) {
	args := m.Called(ctx, id, key, baseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Practice), args.Error(1)
}

// MockAppointmentRepository
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) BatchUpsert(ctx context.Context, practiceID string, appts []entity.Appointment) (int, error) {
	args := m.Called(ctx, practiceID, appts)
	return args.Int(0), args.Error(1)
}

func (m *MockAppointmentRepository) ListByPractice(ctx context.Context, practiceID string) ([]entity.Appointment, error) {
	args := m.Called(ctx, practiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListPage(ctx context.Context, practiceID string, limit, offset int) ([]entity.Appointment, int, error) {
	args := m.Called(ctx, practiceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]entity.Appointment), args.Int(1), args.Error(2)
}

func (m *MockAppointmentRepository) CountByPractice(ctx context.Context, practiceID string) (int, error) {
	args := m.Called(ctx, practiceID)
	return args.Int(0), args.Error(1)
}

func (m *MockAppointmentRepository) CountByPracticeAndEmails(ctx context.Context, practiceID string, emails []string) (int, error) {
	args := m.Called(ctx, practiceID, emails)
	return args.Int(0), args.Error(1)
}

func (m *MockAppointmentRepository) LastSyncedAt(ctx context.Context, practiceID string) (*time.Time, error) {
	args := m.Called(ctx, practiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) BatchInsert(ctx context.Context, practiceID string, leads []entity.Lead) (int, error) {
	args := m.Called(ctx, practiceID, leads)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadRepository) ListByPractice(ctx context.Context, practiceID string) ([]entity.Lead, error) {
	args := m.Called(ctx, practiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListPage(ctx context.Context, practiceID string, limit, offset int) ([]entity.Lead, int, error) {
	args := m.Called(ctx, practiceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]entity.Lead), args.Int(1), args.Error(2)
}

func (m *MockLeadRepository) ListEmailsByPractice(ctx context.Context, practiceID string) ([]string, error) {
	args := m.Called(ctx, practiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLeadRepository) UpdateReconcileFields(ctx context.Context, id, processed, matchedCount, summaryHTML string) error {
	args := m.Called(ctx, id, processed, matchedCount, summaryHTML)
	return args.Error(0)
}

// MockCursorStore
type MockCursorStore struct {
	mock.Mock
}

func (m *MockCursorStore) PracticeDir(practiceName string) (string, error) {
	args := m.Called(practiceName)
	return args.String(0), args.Error(1)
}

func (m *MockCursorStore) LoadAppointments(practiceName string) (int, map[string]intakeq.Appointment, error) {
	args := m.Called(practiceName)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).(map[string]intakeq.Appointment), args.Error(2)
}

func (m *MockCursorStore) SaveAppointments(practiceName string, lastPage int, records map[string]intakeq.Appointment) error {
	args := m.Called(practiceName, lastPage, records)
	return args.Error(0)
}

func (m *MockCursorStore) LoadLeads(practiceName string) (int, []vtiger.LeadRecord, error) {
	args := m.Called(practiceName)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).([]vtiger.LeadRecord), args.Error(2)
}

func (m *MockCursorStore) SaveLeads(practiceName string, lastOffset int, leads []vtiger.LeadRecord) error {
	args := m.Called(practiceName, lastOffset, leads)
	return args.Error(0)
}

// MockAppointmentSource
type MockAppointmentSource struct {
	mock.Mock
}

func (m *MockAppointmentSource) FetchPage(ctx context.Context, page int) ([]intakeq.Appointment, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]intakeq.Appointment), args.Error(1)
}

// MockCRMGateway
type MockCRMGateway struct {
	mock.Mock
}

func (m *MockCRMGateway) GetSession(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCRMGateway) RefreshSession(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCRMGateway) QueryLeads(ctx context.Context, sessionName string, offset, limit int) (int, *vtiger.Response, []vtiger.LeadRecord, error) {
	args := m.Called(ctx, sessionName, offset, limit)
	var resp *vtiger.Response
	if args.Get(1) != nil {
		resp = args.Get(1).(*vtiger.Response)
	}
	var leads []vtiger.LeadRecord
	if args.Get(2) != nil {
		leads = args.Get(2).([]vtiger.LeadRecord)
	}
	return args.Int(0), resp, leads, args.Error(3)
}

func (m *MockCRMGateway) UpdateLead(ctx context.Context, sessionName, leadID string, fields map[string]string) (int, *vtiger.Response, error) {
	args := m.Called(ctx, sessionName, leadID, fields)
	var resp *vtiger.Response
	if args.Get(1) != nil {
		resp = args.Get(1).(*vtiger.Response)
	}
	return args.Int(0), resp, args.Error(2)
}
