package domain

import (
	"errors"
	"fmt"
)

// ErrJoinRequestGone возвращается, когда заявка уже обработана или истекла.
var ErrJoinRequestGone = errors.New("заявка на вступление уже обработана или истекла")

// BackendStatusError: бэкенд ответил неуспешным статусом.
type BackendStatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *BackendStatusError) Error() string {
	return fmt.Sprintf("backend %s: status=%d body=%s", e.Endpoint, e.Status, e.Body)
}
