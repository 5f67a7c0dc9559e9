package order

import (
	"fmt"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/domain/order"

	"github.com/spf13/cobra"
)

var StatusCmd = &cobra.Command{
	Use:       "status <local_id> <pending|processing|completed|cancelled>",
	Short:     "Сменить статус заказа",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"pending", "processing", "completed", "cancelled"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		res, err := app.UpdateOrderStatus(cmd.Context(), args[0], order.Status(args[1]))
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(res)
		}
		fmt.Printf("✓ Заказ %s: %s (%s)\n", res.Order.LocalID, res.Order.Status, types.SourceLabel(res.Source))
		return nil
	},
}
