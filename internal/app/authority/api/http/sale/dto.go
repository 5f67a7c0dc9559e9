package sale

import (
	"fieldsync/internal/domain/sale"
)

type createInput struct {
	IdempotencyKey string `header:"Idempotency-Key" doc:"Ключ повторной доставки отложенного вызова"`
	Body           sale.CreateRequest
}

type output struct {
	Body response
}

type response struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Replayed bool   `json:"replayed,omitempty"`
}
