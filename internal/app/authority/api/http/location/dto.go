package location

import (
	"fieldsync/internal/domain/location"
)

type createInput struct {
	IdempotencyKey string `header:"Idempotency-Key" doc:"Равен sample_id точки"`
	Body           location.UploadRequest
}

type output struct {
	Body response
}

type response struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
