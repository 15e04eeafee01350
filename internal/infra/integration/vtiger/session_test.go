package vtiger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVtiger simula o handshake challenge/login do webservice.
type fakeVtiger struct {
	accessKey string
	token     string

	challenges int
	logins     int
	nextID     int
}

func (f *fakeVtiger) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Query().Get("operation") == "getchallenge" {
			f.challenges++
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"result":  map[string]string{"token": f.token},
			})
			return
		}

		if r.Method == http.MethodPost {
			r.ParseForm()
			sum := md5.Sum([]byte(f.token + f.accessKey))
			if r.PostForm.Get("operation") != "login" || r.PostForm.Get("accessKey") != hex.EncodeToString(sum[:]) {
				json.NewEncoder(w).Encode(map[string]any{"success": false})
				return
			}
			f.logins++
			f.nextID++
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"result":  map[string]string{"sessionName": fmt.Sprintf("sess-%d", f.nextID)},
			})
			return
		}

		http.Error(w, "unexpected request", http.StatusBadRequest)
	}
}

func TestSessionManager_LoginCachesInMemoryAndFile(t *testing.T) {
	fake := &fakeVtiger{accessKey: "secret", token: "tok123"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	dir := t.TempDir()
	mgr := NewSessionManager(server.URL, "admin", "secret", dir)

	session, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session)
	assert.Equal(t, 1, fake.logins)

	// segunda chamada usa a memória
	session, err = mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session)
	assert.Equal(t, 1, fake.logins)

	// um manager novo no mesmo diretório reaproveita o arquivo
	mgr2 := NewSessionManager(server.URL, "admin", "secret", dir)
	session, err = mgr2.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session)
	assert.Equal(t, 1, fake.logins)

	_, err = os.Stat(filepath.Join(dir, "vtiger_session.json"))
	assert.NoError(t, err)
}

func TestSessionManager_RefreshForcesNewLogin(t *testing.T) {
	fake := &fakeVtiger{accessKey: "secret", token: "tok123"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	dir := t.TempDir()
	mgr := NewSessionManager(server.URL, "admin", "secret", dir)

	session, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session)

	session, err = mgr.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-2", session)
	assert.Equal(t, 2, fake.logins)

	// o Get seguinte devolve a sessão nova sem relogar
	session, err = mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-2", session)
	assert.Equal(t, 2, fake.logins)
}

func TestSessionManager_ExpiredFileCacheIsIgnored(t *testing.T) {
	fake := &fakeVtiger{accessKey: "secret", token: "tok123"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	dir := t.TempDir()

	stale := sessionFile{
		SessionName: "sess-velha",
		Timestamp:   time.Now().Add(-25 * time.Hour).UnixMilli(),
	}
	raw, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vtiger_session.json"), raw, 0o644))

	mgr := NewSessionManager(server.URL, "admin", "secret", dir)
	session, err := mgr.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sess-1", session)
	assert.Equal(t, 1, fake.logins)
}

func TestSessionManager_WrongAccessKeyFails(t *testing.T) {
	fake := &fakeVtiger{accessKey: "secret", token: "tok123"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	mgr := NewSessionManager(server.URL, "admin", "chave-errada", t.TempDir())

	_, err := mgr.Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, fake.logins)
}
