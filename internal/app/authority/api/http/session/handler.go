package session

import (
	"context"
	"net/http"

	"fieldsync/internal/app/authority/api/http/middleware/auth"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Handler подтверждает устройству, что его токен принят
type Handler struct {
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{log: log, middleware: mws}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "session-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Проверить токен устройства",
		Tags:        []string{"session"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}, h.check)
}

func (h *Handler) check(ctx context.Context, _ *struct{}) (*output, error) {
	deviceID, ok := auth.GetDeviceID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	return &output{Body: response{DeviceID: deviceID, Status: "Ok"}}, nil
}
