package order

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/domain/order"

	"github.com/spf13/cobra"
)

var unsyncedOnly bool

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список заказов на устройстве",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		orders, err := app.ListOrders(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения заказов: %w", err)
		}
		if unsyncedOnly {
			filtered := orders[:0]
			for _, o := range orders {
				if !o.Synced {
					filtered = append(filtered, o)
				}
			}
			orders = filtered
		}

		if types.JSON(cmd) {
			return types.PrintJSON(orders)
		}
		return printOrders(orders)
	},
}

func printOrders(orders []order.LocalOrder) error {
	if len(orders) == 0 {
		fmt.Println("Заказы не найдены")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Local ID\tServer ID\tКлиент\tСтатус\tСумма\tСоздан\tСинхр.\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t---\t---\t\n")
	for _, o := range orders {
		serverID := "-"
		if o.ServerID != nil {
			serverID = strconv.FormatInt(*o.ServerID, 10)
		}
		synced := types.Warning("нет")
		if o.Synced {
			synced = types.Success("да")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			o.LocalID, serverID, o.CustomerName, o.Status, types.Rubles(o.TotalAmount),
			o.CreatedAt.Local().Format("2006-01-02 15:04"), synced)
	}
	return w.Flush()
}

func init() {
	ListCmd.Flags().BoolVar(&unsyncedOnly, "unsynced", false, "только не отправленные на сервер")
}
