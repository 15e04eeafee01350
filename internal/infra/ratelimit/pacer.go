package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// A API do IntakeQ tolera ~8-9 req/min; acima disso começa a devolver
// 429. O pacer segura esse teto e o Budget limita o custo total de uma
// run (parada suave, retomável pelo cursor).

const (
	DefaultInterval    = 7 * time.Second
	DefaultJitter      = 2 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryAfter  = 60 * time.Second
	DefaultMaxRunShots = 500
)

// ErrRateLimited: o servidor continuou devolvendo 429 depois de todas
// as tentativas.
var ErrRateLimited = errors.New("rate limit excedido após retentativas")

// Pacer espaça as chamadas de um loop de paginação: um rate.Limiter
// para o ritmo constante + jitter aleatório para não sincronizar.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
}

func NewPacer(interval, jitter time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		jitter:  jitter,
	}
}

func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if p.jitter > 0 {
		d := time.Duration(rand.Int63n(int64(p.jitter)))
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Client executa uma request respeitando o pacer e retenta em 429
// dormindo o tempo que o servidor sugerir (Retry-After).
type Client struct {
	HTTPClient *http.Client
	Pacer      *Pacer
	MaxRetries int
	RetryAfter time.Duration // fallback quando o header não vem
}

func NewClient(pacer *Pacer) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Pacer:      pacer,
		MaxRetries: DefaultMaxRetries,
		RetryAfter: DefaultRetryAfter,
	}
}

// Do monta a request via build a cada tentativa (o body não pode ser
// reaproveitado entre tentativas).
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if c.Pacer != nil {
			if err := c.Pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := c.RetryAfter
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		resp.Body.Close()

		if attempt >= c.MaxRetries {
			return nil, ErrRateLimited
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Budget é o teto de requests de uma run inteira.
type Budget struct {
	max  int
	used int
}

func NewBudget(max int) *Budget {
	if max <= 0 {
		max = DefaultMaxRunShots
	}
	return &Budget{max: max}
}

// Spend consome uma request do orçamento; false quando o teto chegou.
func (b *Budget) Spend() bool {
	if b.used >= b.max {
		return false
	}
	b.used++
	return true
}

func (b *Budget) Used() int      { return b.used }
func (b *Budget) Remaining() int { return b.max - b.used }
