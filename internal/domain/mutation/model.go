package mutation

import (
	"encoding/json"
	"time"
)

// Pending хранит отложенный вызов удаленного сервиса.
// Seq назначается хранилищем и задает порядок воспроизведения.
type Pending struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	Method        string          `json:"method"`
	Endpoint      string          `json:"endpoint"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	Dead          bool            `json:"dead"`
}
