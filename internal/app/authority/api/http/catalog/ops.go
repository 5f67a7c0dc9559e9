package catalog

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) productsOp() huma.Operation {
	return huma.Operation{
		OperationID: "products-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "Каталог товаров",
		Tags:        []string{"catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) customersOp() huma.Operation {
	return huma.Operation{
		OperationID: "customers-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/customers",
		Summary:     "Список клиентов",
		Tags:        []string{"catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createCustomerOp() huma.Operation {
	return huma.Operation{
		OperationID: "customers-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/customers",
		Summary:     "Создать клиента",
		Tags:        []string{"catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
