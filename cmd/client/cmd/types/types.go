package types

import (
	"encoding/json"
	"fmt"
	"os"

	"fieldsync/internal/app/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type contextKey string

const (
	ClientAppKey contextKey = "app"
	JSONKey      contextKey = "json"
)

var (
	Success = color.New(color.FgGreen).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Failure = color.New(color.FgRed).SprintFunc()
	Muted   = color.New(color.FgHiBlack).SprintFunc()
)

// App достает клиентское приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

// JSON сообщает, запрошен ли вывод в формате JSON
func JSON(cmd *cobra.Command) bool {
	v, _ := cmd.Context().Value(JSONKey).(bool)
	return v
}

func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SourceLabel подписывает, откуда получен результат
func SourceLabel(s client.Source) string {
	switch s {
	case client.SourceLive:
		return Success("сервер")
	case client.SourceDeferred:
		return Warning("отложено до синхронизации")
	case client.SourceCache:
		return Warning("локальный кэш")
	}
	return string(s)
}

// Rubles форматирует сумму в копейках
func Rubles(kopecks int64) string {
	sign := ""
	if kopecks < 0 {
		sign = "-"
		kopecks = -kopecks
	}
	return fmt.Sprintf("%s%d.%02d ₽", sign, kopecks/100, kopecks%100)
}
