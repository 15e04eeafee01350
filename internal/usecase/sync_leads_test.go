package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/practice-sync/internal/entity"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
)

func endOfDataResponse() *vtiger.Response {
	return &vtiger.Response{Success: false}
}

func leadSyncFixture(gateway CRMGateway) (*SyncLeadsUseCase, *MockPracticeRepository, *MockLeadRepository, *MockCursorStore) {
	practices := new(MockPracticeRepository)
	leads := new(MockLeadRepository)
	cursors := new(MockCursorStore)

	uc := NewSyncLeadsUseCase(practices, leads, cursors, func(p *entity.Practice, dataDir string) CRMGateway {
		return gateway
	})
	// backoffs reais são segundos; nos testes viram instantâneos
	uc.SafeDelay = time.Millisecond
	uc.Jitter = 0
	return uc, practices, leads, cursors
}

func TestSyncLeads_RequiresVtigerCredentials(t *testing.T) {
	uc, practices, _, _ := leadSyncFixture(nil)

	practices.On("FindByID", mock.Anything, "prac-1").Return(&entity.Practice{
		ID: "prac-1", Name: "Sunrise Clinic", IntakeQKey: "key-1",
	}, nil)

	_, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})
	assert.Error(t, err)
}

func TestSyncLeads_PaginatesUntilEndOfData(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, leads, cursors := leadSyncFixture(gateway)

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("sess-1", nil)

	batch := []vtiger.LeadRecord{
		{ID: "10x1", Email: "a@example.com"},
		{ID: "10x2", Email: "b@example.com"},
	}
	gateway.On("QueryLeads", mock.Anything, "sess-1", 0, 50).Return(200, okResponse(), batch, nil).Once()
	// success:false sem erro = acabaram os registros
	gateway.On("QueryLeads", mock.Anything, "sess-1", 2, 50).Return(200, endOfDataResponse(), nil, nil).Once()

	leads.On("BatchInsert", mock.Anything, "prac-1", mock.Anything).Return(2, nil)
	cursors.On("SaveLeads", "Sunrise Clinic", 2, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})
	assert.NoError(t, err)

	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Equal(t, "vtiger", result.Source)
	gateway.AssertExpectations(t)
	cursors.AssertExpectations(t)
}

func TestSyncLeads_DBWriteHappensBeforeCursorSave(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, leads, cursors := leadSyncFixture(gateway)

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("sess-1", nil)

	gateway.On("QueryLeads", mock.Anything, "sess-1", 0, 50).Return(200, okResponse(), []vtiger.LeadRecord{{ID: "10x1"}}, nil)

	dbWritten := false
	leads.On("BatchInsert", mock.Anything, "prac-1", mock.Anything).Run(func(args mock.Arguments) {
		dbWritten = true
	}).Return(0, assert.AnError)

	_, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})

	assert.True(t, IsPersistenceError(err))
	assert.True(t, dbWritten)
	// banco falhou: o cursor fica onde estava e o resume re-busca o lote
	cursors.AssertNotCalled(t, "SaveLeads", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncLeads_AuthFailureRefreshesOnce(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, leads, cursors := leadSyncFixture(gateway)

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("stale", nil)

	gateway.On("QueryLeads", mock.Anything, "stale", 0, 50).Return(401, (*vtiger.Response)(nil), nil, nil).Once()
	gateway.On("RefreshSession", mock.Anything).Return("fresh", nil).Once()
	gateway.On("QueryLeads", mock.Anything, "fresh", 0, 50).Return(200, endOfDataResponse(), nil, nil).Once()

	result, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})
	assert.NoError(t, err)

	assert.Equal(t, 0, result.TotalRecords)
	gateway.AssertExpectations(t)
	leads.AssertNotCalled(t, "BatchInsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncLeads_SecondAuthFailureIsFatal(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, _, cursors := leadSyncFixture(gateway)

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("stale", nil)

	gateway.On("QueryLeads", mock.Anything, "stale", 0, 50).Return(401, (*vtiger.Response)(nil), nil, nil).Once()
	gateway.On("RefreshSession", mock.Anything).Return("fresh", nil).Once()
	// mesmo depois do refresh o CRM recusa: fatal, sem loop de relogin
	gateway.On("QueryLeads", mock.Anything, "fresh", 0, 50).Return(401, (*vtiger.Response)(nil), nil, nil).Once()

	_, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})

	assert.True(t, IsAuthError(err))
	gateway.AssertExpectations(t)
}

func TestSyncLeads_RateLimitExhaustsRetries(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, _, cursors := leadSyncFixture(gateway)
	uc.MaxRateRetries = 2

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("sess-1", nil)

	// sempre no mesmo offset: retentativa não avança o cursor
	gateway.On("QueryLeads", mock.Anything, "sess-1", 0, 50).Return(429, (*vtiger.Response)(nil), nil, nil)

	_, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})

	assert.True(t, IsRateLimitError(err))
	gateway.AssertNumberOfCalls(t, "QueryLeads", 3)
	cursors.AssertNotCalled(t, "SaveLeads", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncLeads_TransientErrorExhaustsRetries(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, _, cursors := leadSyncFixture(gateway)
	uc.MaxTransientRetries = 1

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("sess-1", nil)

	gateway.On("QueryLeads", mock.Anything, "sess-1", 0, 50).Return(503, (*vtiger.Response)(nil), nil, nil)

	_, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})

	assert.True(t, IsServerError(err))
	gateway.AssertNumberOfCalls(t, "QueryLeads", 2)
}

func TestSyncLeads_NetworkErrorCountsAsTransient(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, leads, cursors := leadSyncFixture(gateway)

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(0, nil, nil)
	gateway.On("GetSession", mock.Anything).Return("sess-1", nil)

	// timeout de rede entra na mesma política de retentativa dos 5xx
	gateway.On("QueryLeads", mock.Anything, "sess-1", 0, 50).Return(0, (*vtiger.Response)(nil), nil, assert.AnError).Once()
	gateway.On("QueryLeads", mock.Anything, "sess-1", 0, 50).Return(200, endOfDataResponse(), nil, nil).Once()

	result, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})
	assert.NoError(t, err)

	assert.Equal(t, 0, result.TotalRecords)
	gateway.AssertNumberOfCalls(t, "QueryLeads", 2)
	leads.AssertNotCalled(t, "BatchInsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncLeads_ResumesFromSavedOffset(t *testing.T) {
	gateway := new(MockCRMGateway)
	uc, practices, _, cursors := leadSyncFixture(gateway)

	practices.On("FindByID", mock.Anything, "prac-1").Return(vtigerPractice(), nil)
	cursors.On("PracticeDir", "Sunrise Clinic").Return("dir", nil)
	cursors.On("LoadLeads", "Sunrise Clinic").Return(100, []vtiger.LeadRecord{{ID: "10x1"}}, nil)
	gateway.On("GetSession", mock.Anything).Return("sess-1", nil)

	gateway.On("QueryLeads", mock.Anything, "sess-1", 100, 50).Return(200, endOfDataResponse(), nil, nil).Once()

	result, err := uc.Execute(context.Background(), SyncLeadsInput{PracticeID: "prac-1"})
	assert.NoError(t, err)

	assert.Equal(t, 1, result.TotalRecords)
	gateway.AssertExpectations(t)
}
