package location

import (
	"context"
	"errors"

	"fieldsync/internal/app/authority/api/http/middleware/auth"
	"fieldsync/internal/domain/idempotency"
	"fieldsync/internal/domain/location"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service     location.Servicer
	idempotency idempotency.Servicer
	log         *slog.Logger
	middleware  huma.Middlewares
}

func NewHandler(service location.Servicer, idem idempotency.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
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

	key := input.IdempotencyKey
	if key == "" {
		key = input.Body.SampleID
	}

	id, _, err := h.idempotency.Do(ctx, "locations:"+deviceID, key,
		func(ctx context.Context) (int64, error) {
			return h.service.Record(ctx, deviceID, input.Body)
		})
	if err != nil {
		if errors.Is(err, location.ErrInvalidLatitude) ||
			errors.Is(err, location.ErrInvalidLongitude) ||
			errors.Is(err, location.ErrInvalidAccuracy) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.log.Error("location request failed", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	return &output{Body: response{ID: id, Status: "Ok"}}, nil
}
