package intakeq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/practice-sync/internal/infra/ratelimit"
)

// client de teste sem os delays de produção
func fastClient() *ratelimit.Client {
	return &ratelimit.Client{
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Pacer:      ratelimit.NewPacer(time.Millisecond, 0),
		MaxRetries: 1,
		RetryAfter: 10 * time.Millisecond,
	}
}

func TestFetchPage_SendsAuthAndPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("X-Auth-Key"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"Id": "iq1", "ClientEmail": "a@example.com", "Status": "Confirmed"},
		})
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL, fastClient())

	appts, err := client.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "iq1", appts[0].ID)
	assert.Equal(t, "a@example.com", appts[0].ClientEmail)
	// o payload original fica preservado byte a byte
	assert.Contains(t, string(appts[0].Raw), `"Id"`)
}

func TestFetchPage_NonListBodyMeansEndOfData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"no more records"}`))
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL, fastClient())

	appts, err := client.FetchPage(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, appts)
}

func TestFetchPage_EmptyBodyMeansEndOfData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL, fastClient())

	appts, err := client.FetchPage(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, appts)
}

func TestFetchPage_RetriesOn429(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"Id": "iq1"}})
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL, fastClient())

	appts, err := client.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
	assert.Equal(t, 2, calls)
}

func TestFetchPage_PersistentRateLimitGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL, fastClient())

	_, err := client.FetchPage(context.Background(), 1)
	assert.ErrorIs(t, err, ratelimit.ErrRateLimited)
}

func TestFetchPage_ServerErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("key-1", server.URL, fastClient())

	_, err := client.FetchPage(context.Background(), 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
