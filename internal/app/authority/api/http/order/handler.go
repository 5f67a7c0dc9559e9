package order

import (
	"context"
	"errors"

	"fieldsync/internal/app/authority/api/http/middleware/auth"
	"fieldsync/internal/domain/idempotency"
	"fieldsync/internal/domain/order"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service     order.Servicer
	idempotency idempotency.Servicer
	log         *slog.Logger
	middleware  huma.Middlewares
}

func NewHandler(service order.Servicer, idem idempotency.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:     service,
		idempotency: idem,
		log:         log,
		middleware:  mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.updateStatusOp(), h.updateStatus)
	huma.Register(api, h.findOp(), h.find)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	deviceID, ok := auth.GetDeviceID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	id, replayed, err := h.idempotency.Do(ctx, "orders:"+deviceID, input.IdempotencyKey,
		func(ctx context.Context) (int64, error) {
			return h.service.Create(ctx, deviceID, input.Body)
		})
	if err != nil {
		return nil, h.toHTTP(err)
	}

	return &output{
		Body: response{ID: id, Status: "Ok", Replayed: replayed},
	}, nil
}

func (h *Handler) updateStatus(ctx context.Context, input *statusInput) (*output, error) {
	if _, ok := auth.GetDeviceID(ctx); !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.service.UpdateStatus(ctx, input.ID, input.Body.Status); err != nil {
		return nil, h.toHTTP(err)
	}

	return &output{
		Body: response{ID: input.ID, Status: "Ok"},
	}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	if _, ok := auth.GetDeviceID(ctx); !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	o, err := h.service.Get(ctx, input.ID)
	if err != nil {
		return nil, h.toHTTP(err)
	}
	return &findOutput{Body: o}, nil
}

func (h *Handler) toHTTP(err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, order.ErrNoItems),
		errors.Is(err, order.ErrInvalidCustomer),
		errors.Is(err, order.ErrInvalidProduct),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidPrice),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrTotalMismatch):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	h.log.Error("order request failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}
