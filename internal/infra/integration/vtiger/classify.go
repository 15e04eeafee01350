package vtiger

import (
	"net/http"
	"strings"
)

// Class é a classe de retentativa de uma resposta do CRM. Cada classe
// tem política própria no loop de sync (refresh de sessão, backoff
// exponencial, backoff linear, parada normal).
type Class int

const (
	ClassOK Class = iota
	ClassAuth
	ClassRateLimit
	ClassTransient
	ClassEndOfData
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassAuth:
		return "auth"
	case ClassRateLimit:
		return "rate_limit"
	case ClassTransient:
		return "transient"
	case ClassEndOfData:
		return "end_of_data"
	default:
		return "other"
	}
}

// Classify mapeia (status HTTP, corpo) para a classe de retentativa.
// O VTiger mistura erros no status e no corpo, então os dois contam.
func Classify(status int, body *Response) Class {
	if body != nil && body.Success {
		return ClassOK
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ClassAuth
	}
	if body != nil && body.Error != nil {
		if body.Error.Code == "AUTHENTICATION" || strings.Contains(strings.ToLower(body.Error.Message), "session") {
			return ClassAuth
		}
	}

	if status == http.StatusTooManyRequests {
		return ClassRateLimit
	}

	if status >= 500 && status < 600 {
		return ClassTransient
	}

	// success:false sem código de erro = acabaram os registros
	if body != nil && !body.Success && body.Error == nil {
		return ClassEndOfData
	}

	return ClassOther
}
