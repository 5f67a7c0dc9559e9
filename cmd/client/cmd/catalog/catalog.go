package catalog

import (
	"fmt"
	"os"
	"text/tabwriter"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"
	"fieldsync/internal/domain/catalog"

	"github.com/spf13/cobra"
)

var (
	search     string
	category   string
	activeOnly bool

	newCustomer catalog.CreateCustomerRequest
)

var ProductCmd = &cobra.Command{
	Use:   "product",
	Short: "Каталог товаров",
}

var CustomerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Справочник клиентов",
}

var ProductListCmd = &cobra.Command{
	Use:   "list",
	Short: "Найти товары",
	Long: `Ищет товары на сервере. Без связи поиск выполняется по локальному
кэшу с теми же правилами фильтрации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		res, err := app.GetProducts(cmd.Context(), catalog.ProductFilter{
			Search:     search,
			Category:   category,
			ActiveOnly: activeOnly,
		})
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(res)
		}
		printSource(res.Source, res.Stale, len(res.Items))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tАртикул\tНазвание\tКатегория\tЦена\tОстаток\t\n")
		for _, p := range res.Items {
			name := p.Name
			if !p.Active {
				name = types.Muted(name + " (снят)")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d %s\t\n", p.ID, p.SKU, name, p.Category, types.Rubles(p.Price), p.Stock, p.Unit)
		}
		return w.Flush()
	},
}

var CustomerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Найти клиентов",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		res, err := app.GetCustomers(cmd.Context(), catalog.CustomerFilter{Search: search})
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(res)
		}
		printSource(res.Source, res.Stale, len(res.Items))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tИмя\tТелефон\tАдрес\t\n")
		for _, c := range res.Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", c.ID, c.Name, c.Phone, c.Address)
		}
		return w.Flush()
	},
}

var CustomerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Добавить клиента",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		res, err := app.CreateCustomer(cmd.Context(), newCustomer)
		if err != nil {
			return err
		}

		if types.JSON(cmd) {
			return types.PrintJSON(res)
		}
		if res.ID > 0 {
			fmt.Printf("✓ Клиент #%d создан (%s)\n", res.ID, types.SourceLabel(res.Source))
		} else {
			fmt.Printf("✓ Клиент будет создан при синхронизации (%s)\n", res.MutationID)
		}
		return nil
	},
}

func printSource(source client.Source, stale bool, n int) {
	fmt.Printf("Найдено: %d, источник: %s", n, types.SourceLabel(source))
	if stale {
		fmt.Printf(" %s", types.Failure("(данные устарели)"))
	}
	fmt.Println()
}

func init() {
	ProductListCmd.Flags().StringVarP(&search, "search", "s", "", "подстрока названия или артикула")
	ProductListCmd.Flags().StringVar(&category, "category", "", "категория")
	ProductListCmd.Flags().BoolVar(&activeOnly, "active", false, "только активные товары")

	CustomerListCmd.Flags().StringVarP(&search, "search", "s", "", "подстрока имени, телефона или email")

	CustomerCreateCmd.Flags().StringVar(&newCustomer.Name, "name", "", "имя или название")
	CustomerCreateCmd.Flags().StringVar(&newCustomer.Phone, "phone", "", "телефон")
	CustomerCreateCmd.Flags().StringVar(&newCustomer.Email, "email", "", "email")
	CustomerCreateCmd.Flags().StringVar(&newCustomer.Address, "address", "", "адрес")
	_ = CustomerCreateCmd.MarkFlagRequired("name")
}
