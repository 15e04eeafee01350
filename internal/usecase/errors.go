package usecase

import (
	"errors"
	"fmt"
)

// Taxonomia de erros dos engines de sync. Cada classe carrega a
// política de retentativa que o loop aplicou antes de desistir.

// AuthError: credencial ou sessão inválida. O engine já tentou um
// refresh de sessão; a segunda falha consecutiva é fatal.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// RateLimitError: 429 persistiu depois do backoff exponencial.
type RateLimitError struct {
	Retries int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit excedido (429) após %d retentativas", e.Retries)
}

func IsRateLimitError(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// ServerError: 5xx persistiu depois do backoff linear.
type ServerError struct {
	Status  int
	Retries int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("erro de servidor %d após %d retentativas", e.Status, e.Retries)
}

func IsServerError(err error) bool {
	var target *ServerError
	return errors.As(err, &target)
}

// PersistenceError: falha de escrita durável (banco ou arquivo de
// cursor). Fatal para a run — pular uma página silenciosamente
// subcontaria registros; o resume pelo cursor resolve.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("falha de persistência em %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
