package order

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID:   "orders-create",
		Method:        http.MethodPost,
		Path:          "/api/v1/orders",
		Summary:       "Создать заказ",
		Description:   "Повторная доставка с тем же Idempotency-Key возвращает уже созданный заказ.",
		Tags:          []string{"orders"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusOK,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) updateStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-update-status",
		Method:      http.MethodPatch,
		Path:        "/api/v1/orders/{id}/status",
		Summary:     "Изменить статус заказа",
		Tags:        []string{"orders"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "orders-find",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders/{id}",
		Summary:     "Получить заказ",
		Tags:        []string{"orders"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
