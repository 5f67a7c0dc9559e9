package sync

import (
	"context"
	"fmt"
	"time"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"

	"github.com/spf13/cobra"
)

var (
	watch      bool
	syncStatus bool
	resetStats bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Отправляет на сервер все, что накопилось без связи: отложенные
вызовы, неотправленные заказы и точки маршрута.

С флагом --watch клиент остается запущенным и синхронизируется
по расписанию, пока не будет прерван.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		switch {
		case syncStatus:
			return showSyncStatus(cmd, app)
		case resetStats:
			app.ResetSyncStats()
			fmt.Println(types.Success("✓ Статистика синхронизации сброшена"))
			return nil
		case watch:
			fmt.Println("Автосинхронизация запущена, Ctrl+C для остановки")
			return app.Run(cmd.Context(), nil)
		}
		return runSync(cmd, app)
	},
}

func runSync(cmd *cobra.Command, app *client.App) error {
	if !app.IsAuthenticated() {
		return fmt.Errorf("требуется вход. Выполните: fieldsync auth login")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	result, syncErr := app.SyncNow(ctx)
	if result == nil {
		return fmt.Errorf("ошибка синхронизации: %w", syncErr)
	}
	if types.JSON(cmd) {
		return types.PrintJSON(result)
	}

	if !result.Online {
		fmt.Println(types.Warning("⚠️  Нет связи с сервером, все данные остаются на устройстве"))
	}

	fmt.Printf("Отложенные вызовы: отправлено %d, отклонено %d, пропущено %d\n",
		result.Mutations.Drained, result.Mutations.Rejected, result.Mutations.Skipped)
	fmt.Printf("Заказы: отправлено %d, отклонено %d\n", result.Orders.Synced, result.Orders.Rejected)
	fmt.Printf("Точки маршрута: отправлено %d, ошибок %d\n", result.Locations.Uploaded, result.Locations.Failed)
	if result.Products > 0 || result.Customers > 0 {
		fmt.Printf("Справочники: товаров %d, клиентов %d\n", result.Products, result.Customers)
	}
	if result.Mutations.Stopped || result.Orders.Stopped {
		fmt.Println(types.Warning("Связь прервалась, остаток будет отправлен позже"))
	}

	for i, e := range result.Errors {
		if i == 3 {
			fmt.Printf("  ... и еще %d ошибок\n", len(result.Errors)-3)
			break
		}
		fmt.Printf("  %s %s: %s\n", types.Failure("•"), e.Operation, e.Error)
	}

	fmt.Printf("Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
	if syncErr != nil {
		return syncErr
	}
	fmt.Println(types.Success("✅ Синхронизация завершена"))
	return nil
}

func showSyncStatus(cmd *cobra.Command, app *client.App) error {
	stats := app.SyncStats()
	if types.JSON(cmd) {
		return types.PrintJSON(stats)
	}

	fmt.Println("📊 Статистика:")
	fmt.Printf("  Всего синхронизаций: %d\n", stats.TotalSyncs)
	fmt.Printf("  С ошибками: %d\n", stats.TotalErrors)
	fmt.Printf("  Отправлено вызовов из очереди: %d\n", stats.TotalDrained)
	fmt.Printf("  Отправлено заказов: %d\n", stats.TotalOrders)
	fmt.Printf("  Отправлено точек: %d\n", stats.TotalLocations)
	fmt.Printf("  Среднее время: %.2f сек\n", stats.AvgSyncDuration)
	fmt.Printf("  В очереди сейчас: %d\n", stats.PendingMutations)

	if !stats.LastSuccessful.IsZero() {
		fmt.Printf("  Последняя успешная: %s\n", stats.LastSuccessful.Local().Format("2006-01-02 15:04:05"))
	}
	if !stats.LastFailed.IsZero() {
		fmt.Printf("  Последняя неудачная: %s\n", stats.LastFailed.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Printf("\n🌐 Соединение с сервером: ")
	if err := app.CheckConnection(cmd.Context()); err != nil {
		fmt.Println(types.Failure("нет"))
	} else {
		fmt.Println(types.Success("OK"))
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "синхронизироваться по расписанию до прерывания")
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статистику синхронизации")
	SyncCmd.Flags().BoolVar(&resetStats, "reset", false, "сбросить статистику синхронизации")
}
