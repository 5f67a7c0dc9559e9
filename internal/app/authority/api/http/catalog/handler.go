package catalog

import (
	"context"
	"errors"

	"fieldsync/internal/app/authority/api/http/middleware/auth"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/idempotency"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service     catalog.Servicer
	idempotency idempotency.Servicer
	log         *slog.Logger
	middleware  huma.Middlewares
}

func NewHandler(service catalog.Servicer, idem idempotency.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:     service,
		idempotency: idem,
		log:         log,
		middleware:  mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.productsOp(), h.products)
	huma.Register(api, h.customersOp(), h.customers)
	huma.Register(api, h.createCustomerOp(), h.createCustomer)
}

func (h *Handler) products(ctx context.Context, input *productsInput) (*productsOutput, error) {
	products, err := h.service.Products(ctx, catalog.ProductFilter{
		Search:     input.Search,
		Category:   input.Category,
		ActiveOnly: input.Active,
	})
	if err != nil {
		h.log.Error("products request failed", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if products == nil {
		products = []catalog.Product{}
	}
	return &productsOutput{Body: products}, nil
}

func (h *Handler) customers(ctx context.Context, input *customersInput) (*customersOutput, error) {
	customers, err := h.service.Customers(ctx, catalog.CustomerFilter{Search: input.Search})
	if err != nil {
		h.log.Error("customers request failed", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if customers == nil {
		customers = []catalog.Customer{}
	}
	return &customersOutput{Body: customers}, nil
}

func (h *Handler) createCustomer(ctx context.Context, input *createCustomerInput) (*output, error) {
	deviceID, ok := auth.GetDeviceID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	id, replayed, err := h.idempotency.Do(ctx, "customers:"+deviceID, input.IdempotencyKey,
		func(ctx context.Context) (int64, error) {
			return h.service.CreateCustomer(ctx, input.Body)
		})
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyName) || errors.Is(err, catalog.ErrInvalidEmail) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.log.Error("customer request failed", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	return &output{Body: response{ID: id, Status: "Ok", Replayed: replayed}}, nil
}
