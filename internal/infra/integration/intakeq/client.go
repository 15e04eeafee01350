package intakeq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/xavierca1/practice-sync/internal/infra/ratelimit"
)

type Client struct {
	apiKey string
	apiURL string // base já com o path /appointments
	http   *ratelimit.Client
}

func NewClient(apiKey, apiURL string, rc *ratelimit.Client) *Client {
	return &Client{
		apiKey: apiKey,
		apiURL: apiURL,
		http:   rc,
	}
}

// FetchPage busca uma página de appointments. Devolve slice vazio
// quando a fonte acabou (corpo vazio ou não-lista).
func (c *Client) FetchPage(ctx context.Context, page int) ([]Appointment, error) {
	resp, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("page", strconv.Itoa(page))
		req.URL.RawQuery = q.Encode()
		req.Header.Set("X-Auth-Key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("intakeq: status %d - %s", resp.StatusCode, string(body))
	}

	// Um 200 cujo corpo não é lista significa fim dos dados
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}

	var appts []Appointment
	if err := json.Unmarshal(trimmed, &appts); err != nil {
		return nil, fmt.Errorf("intakeq: resposta inválida na página %d: %w", page, err)
	}
	return appts, nil
}
