package order

import (
	"github.com/spf13/cobra"
)

// OrderCmd - родительская команда для работы с заказами
var OrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Заказы клиентов",
	Long: `Создание заказов, смена статуса и просмотр локального журнала.

Заказ всегда сначала сохраняется на устройстве. Если сервер недоступен,
он будет отправлен при следующей синхронизации.`,
}
