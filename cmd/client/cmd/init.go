package cmd

import (
	"fmt"

	"fieldsync/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Проверить настройку клиента",
	Long: `Команда init показывает, где клиент хранит данные, и проверяет
соединение с сервером. Локальное хранилище создается при первом запуске.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== FieldSync ===")
		fmt.Printf("Директория:  %s\n", cfg.ConfigDir)
		fmt.Printf("Хранилище:   %s\n", app.StorageBackend())
		fmt.Printf("Устройство:  %s\n", cfg.DeviceID)
		fmt.Printf("Сервер:      %s\n", cfg.BaseURL())

		switch {
		case offline:
			fmt.Println(types.Warning("Офлайн-режим: сервер не проверялся"))
		case app.CheckConnection(cmd.Context()) != nil:
			fmt.Println(types.Warning("Сервер недоступен. Операции будут откладываться до синхронизации."))
		default:
			fmt.Println(types.Success("✓ Соединение с сервером установлено"))
		}

		if !app.IsAuthenticated() {
			fmt.Println()
			fmt.Println("Что дальше:")
			fmt.Println("1. Войдите: fieldsync auth login")
			fmt.Println("2. Загрузите каталог: fieldsync product list")
		}
		return nil
	},
}
