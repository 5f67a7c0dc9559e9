package queue

import (
	"fmt"
	"os"
	"text/tabwriter"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/domain/mutation"

	"github.com/spf13/cobra"
)

var deadOnly bool

var QueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Отложенные вызовы",
	Long: `Просмотр и ручная очистка очереди вызовов, ожидающих связи.

Вызовы отправляются по порядку при синхронизации. Вызов, отклоненный
сервером, остается в очереди и не блокирует следующие.`,
}

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать очередь",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		pending, err := app.PendingMutations(cmd.Context())
		if err != nil {
			return err
		}
		if deadOnly {
			dead := make([]mutation.Pending, 0, len(pending))
			for _, p := range pending {
				if p.Dead {
					dead = append(dead, p)
				}
			}
			pending = dead
		}

		if types.JSON(cmd) {
			return types.PrintJSON(pending)
		}
		if len(pending) == 0 {
			fmt.Println(types.Success("Очередь пуста"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tВызов\tПоставлен\tПопыток\tОшибка\t\n")
		for _, p := range pending {
			call := p.Method + " " + p.Endpoint
			if p.Dead {
				call = types.Failure(call + " (остановлен)")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t\n",
				p.ID, call, p.EnqueuedAt.Local().Format("2006-01-02 15:04:05"), p.Attempts, types.Muted(p.LastError))
		}
		return w.Flush()
	},
}

var DropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Удалить вызов из очереди без отправки",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.RemoveMutation(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(types.Success("✓ Вызов удален"))
		return nil
	},
}

func init() {
	ListCmd.Flags().BoolVar(&deadOnly, "dead", false, "только остановленные после исчерпания попыток")
}
