package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fieldsync/cmd/client/cmd/auth"
	"fieldsync/cmd/client/cmd/catalog"
	"fieldsync/cmd/client/cmd/location"
	"fieldsync/cmd/client/cmd/order"
	"fieldsync/cmd/client/cmd/queue"
	"fieldsync/cmd/client/cmd/sale"
	"fieldsync/cmd/client/cmd/sync"
	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"
	"fieldsync/internal/app/client/config"
	"fieldsync/internal/utils/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	logCloser  io.Closer
	app        *client.App
	debug      bool
	jsonOutput bool
	offline    bool
	serverAddr string
)

var rootCmd = &cobra.Command{
	Use:   "fieldsync",
	Short: "FieldSync - клиент торгового агента",
	Long: `FieldSync работает с заказами, продажами, клиентами и маршрутом
торгового агента без постоянной связи.

Все операции выполняются сразу, если сервер доступен, и откладываются
в локальную очередь, если нет. Команда sync отправляет накопленное.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: shutdownApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", types.Failure("Ошибка:"), err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if serverAddr != "" {
		cfg.ServerAddress = serverAddr
	}
	env := cfg.Env
	if debug {
		env = config.EnvDev
	}

	if debug || cfg.LogFile != "" {
		log, logCloser = logger.NewWithFile(env, cfg.LogFile)
	} else {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var opts []client.Option
	if offline {
		opts = append(opts, client.WithOracle(client.NewManualOracle(false)))
	}

	app, err = client.New(cfg, log, opts...)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	if !offline {
		_ = app.CheckConnection(cmd.Context())
	}

	ctx := context.WithValue(cmd.Context(), types.ClientAppKey, app)
	ctx = context.WithValue(ctx, types.JSONKey, jsonOutput)
	cmd.SetContext(ctx)
	return nil
}

func shutdownApp(_ *cobra.Command, _ []string) error {
	if app != nil {
		app.Shutdown()
	}
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".fieldsync"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный журнал")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "работать без обращения к серверу")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "адрес сервера (host:port)")

	auth.AuthCmd.AddCommand(auth.LoginCmd, auth.LogoutCmd, auth.StatusCmd)
	order.OrderCmd.AddCommand(order.CreateCmd, order.StatusCmd, order.ListCmd, order.GetCmd)
	sale.SaleCmd.AddCommand(sale.CreateCmd)
	catalog.ProductCmd.AddCommand(catalog.ProductListCmd)
	catalog.CustomerCmd.AddCommand(catalog.CustomerListCmd, catalog.CustomerCreateCmd)
	location.LocationCmd.AddCommand(location.RecordCmd, location.TrackCmd)
	queue.QueueCmd.AddCommand(queue.ListCmd, queue.DropCmd)

	rootCmd.AddCommand(
		initCmd,
		auth.AuthCmd,
		order.OrderCmd,
		sale.SaleCmd,
		catalog.ProductCmd,
		catalog.CustomerCmd,
		location.LocationCmd,
		queue.QueueCmd,
		sync.SyncCmd,
	)
}
