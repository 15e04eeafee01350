package vtiger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Sessões do VTiger valem 24h; qualquer falha de autenticação derruba a
// sessão na hora, independente do TTL.
const SessionTTL = 24 * time.Hour

type sessionFile struct {
	SessionName string `json:"sessionName"`
	Timestamp   int64  `json:"timestamp"` // epoch ms
}

// SessionManager cuida do handshake challenge/login e do cache da
// sessão (memória + arquivo por practice, compartilhado entre runs).
type SessionManager struct {
	HTTPClient *http.Client

	url       string
	username  string
	accessKey string
	file      string

	mu         sync.Mutex
	name       string
	obtainedAt time.Time
}

func NewSessionManager(crmURL, username, accessKey, dir string) *SessionManager {
	return &SessionManager{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		url:        crmURL,
		username:   username,
		accessKey:  accessKey,
		file:       filepath.Join(dir, "vtiger_session.json"),
	}
}

// Get devolve uma sessão válida: memória -> arquivo -> login novo.
func (s *SessionManager) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.name != "" && time.Since(s.obtainedAt) < SessionTTL {
		return s.name, nil
	}

	if cached := s.readCached(); cached != "" {
		return cached, nil
	}

	return s.login(ctx)
}

// Refresh descarta a sessão atual (memória e arquivo) e reloga.
// Chamado quando o CRM devolve falha de autenticação.
func (s *SessionManager) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.name = ""
	os.Remove(s.file)

	return s.login(ctx)
}

func (s *SessionManager) readCached() string {
	raw, err := os.ReadFile(s.file)
	if err != nil {
		return ""
	}
	var cached sessionFile
	if err := json.Unmarshal(raw, &cached); err != nil {
		return ""
	}
	if cached.SessionName == "" || cached.Timestamp == 0 {
		return ""
	}
	obtained := time.UnixMilli(cached.Timestamp)
	if time.Since(obtained) >= SessionTTL {
		return ""
	}
	s.name = cached.SessionName
	s.obtainedAt = obtained
	return s.name
}

// login faz o handshake: pede o challenge token, combina com a access
// key via md5 e submete o login para obter a sessão.
func (s *SessionManager) login(ctx context.Context) (string, error) {
	challengeURL := fmt.Sprintf("%s?operation=getchallenge&username=%s", s.url, url.QueryEscape(s.username))

	req, err := http.NewRequestWithContext(ctx, "GET", challengeURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vtiger challenge: %w", err)
	}
	defer resp.Body.Close()

	var challenge struct {
		Success bool `json:"success"`
		Result  struct {
			Token string `json:"token"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
		return "", fmt.Errorf("vtiger challenge decode: %w", err)
	}
	if !challenge.Success {
		return "", fmt.Errorf("vtiger challenge failed")
	}

	sum := md5.Sum([]byte(challenge.Result.Token + s.accessKey))
	hash := hex.EncodeToString(sum[:])

	form := url.Values{}
	form.Set("operation", "login")
	form.Set("username", s.username)
	form.Set("accessKey", hash)

	loginReq, err := http.NewRequestWithContext(ctx, "POST", s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	loginReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	loginResp, err := s.HTTPClient.Do(loginReq)
	if err != nil {
		return "", fmt.Errorf("vtiger login: %w", err)
	}
	defer loginResp.Body.Close()

	var login struct {
		Success bool `json:"success"`
		Result  struct {
			SessionName string `json:"sessionName"`
		} `json:"result"`
	}
	if err := json.NewDecoder(loginResp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("vtiger login decode: %w", err)
	}
	if !login.Success || login.Result.SessionName == "" {
		return "", fmt.Errorf("vtiger login failed")
	}

	s.name = login.Result.SessionName
	s.obtainedAt = time.Now()
	s.writeCached()

	return s.name, nil
}

// Escrita atômica: tmp + rename, igual aos arquivos de cursor.
func (s *SessionManager) writeCached() {
	payload, err := json.MarshalIndent(sessionFile{
		SessionName: s.name,
		Timestamp:   s.obtainedAt.UnixMilli(),
	}, "", "  ")
	if err != nil {
		return
	}
	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return
	}
	os.Rename(tmp, s.file)
}
