package client

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

// Oracle отвечает на вопрос "есть ли связь". Ответ носит рекомендательный
// характер: любой вызов после IsOnline() == true все равно может упасть.
type Oracle interface {
	IsOnline() bool
}

// outcomeReporter получает от HTTP клиента итог каждого вызова
type outcomeReporter interface {
	ReportSuccess()
	ReportFailure(err error)
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// ProbeOracle хранит последнее известное состояние связи и периодически
// проверяет доступность сервера
type ProbeOracle struct {
	online   atomic.Bool
	checker  healthChecker
	interval time.Duration
	log      *slog.Logger
}

func NewProbeOracle(checker healthChecker, interval time.Duration, log *slog.Logger) *ProbeOracle {
	o := &ProbeOracle{
		checker:  checker,
		interval: interval,
		log:      log.With("component", "connectivity"),
	}
	// До первой проверки считаем, что связь есть
	o.online.Store(true)
	return o
}

func (o *ProbeOracle) IsOnline() bool {
	return o.online.Load()
}

func (o *ProbeOracle) ReportSuccess() {
	o.set(true)
}

func (o *ProbeOracle) ReportFailure(err error) {
	if IsRetryable(err) {
		o.set(false)
	}
}

func (o *ProbeOracle) set(online bool) {
	if o.online.Swap(online) != online {
		o.log.Info("Состояние связи изменилось", "online", online)
	}
}

// Probe выполняет одну проверку доступности сервера
func (o *ProbeOracle) Probe(ctx context.Context) bool {
	err := o.checker.Health(ctx)
	if err != nil {
		o.log.Debug("Сервер недоступен", "error", err)
	}
	o.set(err == nil)
	return err == nil
}

// Run проверяет связь с заданным интервалом до отмены контекста
func (o *ProbeOracle) Run(ctx context.Context) {
	o.Probe(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Probe(ctx)
		}
	}
}

// ManualOracle хранит явно заданное состояние связи (флаг --offline, тесты)
type ManualOracle struct {
	online atomic.Bool
}

func NewManualOracle(online bool) *ManualOracle {
	o := &ManualOracle{}
	o.online.Store(online)
	return o
}

func (o *ManualOracle) IsOnline() bool {
	return o.online.Load()
}

func (o *ManualOracle) Set(online bool) {
	o.online.Store(online)
}
