package order

import (
	"fmt"

	"fieldsync/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var GetCmd = &cobra.Command{
	Use:   "get <local_id>",
	Short: "Показать заказ",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		o, err := app.GetOrder(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(o)
		}

		fmt.Printf("Заказ %s\n", o.LocalID)
		if o.ServerID != nil {
			fmt.Printf("  Номер на сервере: %d\n", *o.ServerID)
		} else {
			fmt.Printf("  %s\n", types.Warning("ожидает отправки"))
		}
		fmt.Printf("  Клиент: %s (#%d)\n", o.CustomerName, o.CustomerID)
		fmt.Printf("  Статус: %s\n", o.Status)
		if o.Notes != "" {
			fmt.Printf("  Комментарий: %s\n", o.Notes)
		}
		fmt.Println("  Позиции:")
		for _, it := range o.Items {
			fmt.Printf("    %s × %d по %s = %s\n",
				it.ProductName, it.Quantity, types.Rubles(it.UnitPrice), types.Rubles(it.Subtotal))
		}
		fmt.Printf("  Итого: %s\n", types.Rubles(o.TotalAmount))
		return nil
	},
}
