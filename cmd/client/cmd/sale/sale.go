package sale

import (
	"fmt"
	"strconv"
	"strings"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/domain/sale"

	"github.com/spf13/cobra"
)

var (
	payment    string
	customerID int64
	items      []string
)

var SaleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Продажи с торговой точки",
}

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Зарегистрировать продажу",
	Long: `Регистрирует продажу. Позиции задаются флагом --item в виде
product_id:quantity:unit_price (цена в копейках).`,
	Example: `  fieldsync sale create --payment cash --item 3:2:9900`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		req := sale.CreateRequest{PaymentMethod: sale.PaymentMethod(payment)}
		if customerID > 0 {
			req.CustomerID = &customerID
		}
		for _, raw := range items {
			it, err := parseItem(raw)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, it)
		}

		res, err := app.CreateSale(cmd.Context(), req)
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(res)
		}
		if res.ID > 0 {
			fmt.Printf("✓ Продажа #%d на %s (%s)\n", res.ID, types.Rubles(req.Total()), types.SourceLabel(res.Source))
		} else {
			fmt.Printf("✓ Продажа на %s (%s)\n", types.Rubles(req.Total()), types.SourceLabel(res.Source))
		}
		return nil
	},
}

func parseItem(raw string) (sale.Item, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return sale.Item{}, fmt.Errorf("позиция %q: ожидается product_id:quantity:unit_price", raw)
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return sale.Item{}, fmt.Errorf("позиция %q: %w", raw, err)
		}
		nums[i] = n
	}
	return sale.Item{ProductID: nums[0], Quantity: int(nums[1]), UnitPrice: nums[2]}, nil
}

func init() {
	CreateCmd.Flags().StringVar(&payment, "payment", string(sale.PaymentCash), "способ оплаты: cash или card")
	CreateCmd.Flags().Int64Var(&customerID, "customer", 0, "id клиента (необязательно)")
	CreateCmd.Flags().StringArrayVar(&items, "item", nil, "позиция product_id:quantity:unit_price")
	_ = CreateCmd.MarkFlagRequired("item")
}
