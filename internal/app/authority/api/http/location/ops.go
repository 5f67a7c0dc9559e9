package location

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "locations-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/locations",
		Summary:     "Принять точку маршрута",
		Tags:        []string{"locations"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
