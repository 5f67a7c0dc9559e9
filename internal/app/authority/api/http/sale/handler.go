package sale

import (
	"context"
	"errors"

	"fieldsync/internal/app/authority/api/http/middleware/auth"
	"fieldsync/internal/domain/idempotency"
	"fieldsync/internal/domain/sale"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service     sale.Servicer
	idempotency idempotency.Servicer
	log         *slog.Logger
	middleware  huma.Middlewares
}

func NewHandler(service sale.Servicer, idem idempotency.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:     service,
		idempotency: idem,
		log:         log,
		middleware:  mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	deviceID, ok := auth.GetDeviceID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	id, replayed, err := h.idempotency.Do(ctx, "sales:"+deviceID, input.IdempotencyKey,
		func(ctx context.Context) (int64, error) {
			return h.service.Create(ctx, deviceID, input.Body)
		})
	if err != nil {
		if errors.Is(err, sale.ErrNoItems) || errors.Is(err, sale.ErrInvalidItem) || errors.Is(err, sale.ErrInvalidPayment) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.log.Error("sale request failed", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	return &output{
		Body: response{ID: id, Status: "Ok", Replayed: replayed},
	}, nil
}
