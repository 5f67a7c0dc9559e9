package sale

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "sales-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/sales",
		Summary:     "Зарегистрировать продажу",
		Tags:        []string{"sales"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
