package order

import (
	"fmt"
	"strconv"
	"strings"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"
	"fieldsync/internal/domain/catalog"
	"fieldsync/internal/domain/order"

	"github.com/spf13/cobra"
)

var (
	customerID   int64
	customerName string
	notes        string
	items        []string
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать заказ",
	Long: `Создает заказ для клиента.

Позиции задаются флагом --item в виде product_id:quantity или
product_id:quantity:unit_price (цена в копейках). Если цена не указана,
она и название товара берутся из каталога, в том числе из локального кэша.`,
	Example: `  fieldsync order create --customer 42 --item 1:2 --item 3:1
  fieldsync order create --customer 42 --item 7:1:12500 --notes "до обеда"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		req := order.CreateRequest{
			CustomerID:   customerID,
			CustomerName: customerName,
			Notes:        notes,
		}
		for _, raw := range items {
			it, err := parseItem(raw)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, it)
		}

		if err := resolveFromCatalog(cmd, app, &req); err != nil {
			return err
		}

		res, err := app.CreateOrder(cmd.Context(), req)
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(res)
		}
		fmt.Printf("✓ Заказ %s на %s (%s)\n",
			res.Order.LocalID, types.Rubles(res.Order.TotalAmount), types.SourceLabel(res.Source))
		if res.Order.ServerID != nil {
			fmt.Printf("  Номер на сервере: %d\n", *res.Order.ServerID)
		}
		return nil
	},
}

func parseItem(raw string) (order.ItemRequest, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return order.ItemRequest{}, fmt.Errorf("позиция %q: ожидается product_id:quantity[:unit_price]", raw)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return order.ItemRequest{}, fmt.Errorf("позиция %q: неверный product_id", raw)
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return order.ItemRequest{}, fmt.Errorf("позиция %q: неверное количество", raw)
	}
	it := order.ItemRequest{ProductID: id, Quantity: qty, UnitPrice: -1}
	if len(parts) == 3 {
		price, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return order.ItemRequest{}, fmt.Errorf("позиция %q: неверная цена", raw)
		}
		it.UnitPrice = price
	}
	return it, nil
}

// resolveFromCatalog дописывает цены и названия из каталога и имя клиента
func resolveFromCatalog(cmd *cobra.Command, app *client.App, req *order.CreateRequest) error {
	missingPrice := false
	for _, it := range req.Items {
		if it.UnitPrice < 0 {
			missingPrice = true
		}
	}

	res, err := app.GetProducts(cmd.Context(), catalog.ProductFilter{})
	switch {
	case err != nil && missingPrice:
		return fmt.Errorf("каталог недоступен, укажите цены явно: %w", err)
	case err == nil:
		byID := make(map[int64]catalog.Product, len(res.Items))
		for _, p := range res.Items {
			byID[p.ID] = p
		}
		for i := range req.Items {
			p, ok := byID[req.Items[i].ProductID]
			if !ok {
				if req.Items[i].UnitPrice < 0 {
					return fmt.Errorf("товар %d не найден в каталоге", req.Items[i].ProductID)
				}
				continue
			}
			if req.Items[i].UnitPrice < 0 {
				req.Items[i].UnitPrice = p.Price
			}
			req.Items[i].ProductName = p.Name
		}
	}

	if req.CustomerName == "" && req.CustomerID > 0 {
		res, err := app.GetCustomers(cmd.Context(), catalog.CustomerFilter{})
		if err == nil {
			for _, c := range res.Items {
				if c.ID == req.CustomerID {
					req.CustomerName = c.Name
					break
				}
			}
		}
	}
	return nil
}

func init() {
	CreateCmd.Flags().Int64Var(&customerID, "customer", 0, "id клиента")
	CreateCmd.Flags().StringVar(&customerName, "customer-name", "", "имя клиента (по умолчанию из справочника)")
	CreateCmd.Flags().StringVar(&notes, "notes", "", "комментарий к заказу")
	CreateCmd.Flags().StringArrayVar(&items, "item", nil, "позиция product_id:quantity[:unit_price]")
	_ = CreateCmd.MarkFlagRequired("customer")
	_ = CreateCmd.MarkFlagRequired("item")
}
