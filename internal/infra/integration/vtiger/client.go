package vtiger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fala o protocolo do webservice do VTiger: query com SQL-like
// (LIMIT offset,count) e update com element JSON. A sessão é passada
// pelo chamador — é ele quem decide quando forçar o refresh.
type Client struct {
	HTTPClient *http.Client
	URL        string
	Session    *SessionManager
}

func NewClient(crmURL string, session *SessionManager) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		URL:        crmURL,
		Session:    session,
	}
}

func (c *Client) GetSession(ctx context.Context) (string, error) {
	return c.Session.Get(ctx)
}

func (c *Client) RefreshSession(ctx context.Context) (string, error) {
	return c.Session.Refresh(ctx)
}

// Query executa a consulta e devolve o status HTTP junto do corpo
// parseado — os dois entram na classificação de erro. Corpo que não é
// JSON vira body nil (classificado só pelo status).
func (c *Client) Query(ctx context.Context, sessionName, query string) (int, *Response, error) {
	u := fmt.Sprintf("%s?operation=query&sessionName=%s&query=%s",
		c.URL, url.QueryEscape(sessionName), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, &parsed, nil
}

// QueryLeads monta a consulta paginada de leads e decodifica o result.
func (c *Client) QueryLeads(ctx context.Context, sessionName string, offset, limit int) (int, *Response, []LeadRecord, error) {
	query := fmt.Sprintf("SELECT * FROM Leads LIMIT %d,%d;", offset, limit)

	status, resp, err := c.Query(ctx, sessionName, query)
	if err != nil || resp == nil || !resp.Success {
		return status, resp, nil, err
	}

	var leads []LeadRecord
	if err := json.Unmarshal(resp.Result, &leads); err != nil {
		return status, resp, nil, fmt.Errorf("vtiger: result inválido: %w", err)
	}
	return status, resp, leads, nil
}

// UpdateLead manda o update do lead com os campos de conciliação.
func (c *Client) UpdateLead(ctx context.Context, sessionName, leadID string, fields map[string]string) (int, *Response, error) {
	element := map[string]string{"id": leadID}
	for k, v := range fields {
		element[k] = v
	}

	elementJSON, err := json.Marshal(element)
	if err != nil {
		return 0, nil, err
	}

	form := url.Values{}
	form.Set("operation", "update")
	form.Set("sessionName", sessionName)
	form.Set("element", string(elementJSON))

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, &parsed, nil
}
