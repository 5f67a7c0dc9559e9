package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

const (
	headerAuthorization = "Authorization"
	HeaderDeviceID      = "X-Device-ID"
)

type contextKey string

const DeviceIDKey contextKey = "deviceID"

// Auth пропускает запросы с bearer токеном, совпадающим с bcrypt хэшем,
// и кладет id устройства в контекст
type Auth struct {
	hash []byte
	log  *slog.Logger

	mu       sync.RWMutex
	verified map[string]struct{}
}

func New(tokenHash string, log *slog.Logger) *Auth {
	return &Auth{
		hash:     []byte(tokenHash),
		log:      log.With("component", "auth_middleware"),
		verified: make(map[string]struct{}),
	}
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header(headerAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.log.Warn("missing bearer token", "path", ctx.URL().Path)
			a.reject(ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !a.check(token) {
			a.log.Warn("invalid token", "path", ctx.URL().Path)
			a.reject(ctx, http.StatusUnauthorized, "Unauthorized")
			return
		}

		deviceID := strings.TrimSpace(ctx.Header(HeaderDeviceID))
		if deviceID == "" {
			a.reject(ctx, http.StatusBadRequest, "X-Device-ID header is required")
			return
		}

		newCtx := context.WithValue(ctx.Context(), DeviceIDKey, deviceID)
		next(huma.WithContext(ctx, newCtx))
	}
}

// check сравнивает токен с хэшем; bcrypt медленный, поэтому принятые токены запоминаются
func (a *Auth) check(token string) bool {
	a.mu.RLock()
	_, ok := a.verified[token]
	a.mu.RUnlock()
	if ok {
		return true
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return false
	}

	a.mu.Lock()
	a.verified[token] = struct{}{}
	a.mu.Unlock()
	return true
}

func (a *Auth) reject(ctx huma.Context, status int, title string) {
	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(status)
	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": title,
	}); err != nil {
		a.log.Error("failed to encode auth error", "error", err)
	}
}

// GetDeviceID возвращает id устройства, установленный мидлварью
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(DeviceIDKey).(string)
	return deviceID, ok
}
