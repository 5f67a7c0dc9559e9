package catalog

import (
	"fieldsync/internal/domain/catalog"
)

type productsInput struct {
	Search   string `query:"search" doc:"Подстрока имени или артикула"`
	Category string `query:"category" doc:"Категория без учета регистра"`
	Active   bool   `query:"active" doc:"Только активные товары"`
}

type productsOutput struct {
	Body []catalog.Product
}

type customersInput struct {
	Search string `query:"search" doc:"Подстрока имени, телефона или email"`
}

type customersOutput struct {
	Body []catalog.Customer
}

type createCustomerInput struct {
	IdempotencyKey string `header:"Idempotency-Key"`
	Body           catalog.CreateCustomerRequest
}

type output struct {
	Body response
}

type response struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Replayed bool   `json:"replayed,omitempty"`
}
