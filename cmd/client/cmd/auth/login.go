package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"fieldsync/cmd/client/cmd/types"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var tokenFlag string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти по токену устройства",
	Long: `Сохраняет токен устройства для последующих операций.

Если сервер доступен, токен сразу проверяется. Без связи токен сохраняется
без проверки, отказ придет при первой синхронизации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		token := tokenFlag
		if token == "" {
			fmt.Print("Токен: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("ошибка чтения токена: %w", err)
			}
			fmt.Println()
			token = string(raw)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		verified, err := app.Login(ctx, token)
		if err != nil {
			return fmt.Errorf("ошибка входа: %w", err)
		}

		if verified {
			fmt.Println(types.Success("✅ Токен принят сервером"))
		} else {
			fmt.Println(types.Warning("⚠️  Токен сохранен без проверки: сервер недоступен"))
		}
		return nil
	},
}

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Удалить сохраненный токен",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.ClearToken(); err != nil {
			return err
		}
		fmt.Println(types.Success("✓ Токен удален"))
		return nil
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние входа и связи",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		status := struct {
			Authenticated bool   `json:"authenticated"`
			Online        bool   `json:"online"`
			Storage       string `json:"storage"`
		}{app.IsAuthenticated(), app.IsOnline(), app.StorageBackend()}

		if types.JSON(cmd) {
			return types.PrintJSON(status)
		}

		fmt.Printf("🔐 Аутентификация: ")
		if status.Authenticated {
			fmt.Println(types.Success("выполнена"))
		} else {
			fmt.Println(types.Failure("требуется вход"))
		}
		fmt.Printf("🌐 Связь с сервером: ")
		if status.Online {
			fmt.Println(types.Success("есть"))
		} else {
			fmt.Println(types.Warning("нет"))
		}
		fmt.Printf("💾 Хранилище: %s\n", status.Storage)
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVar(&tokenFlag, "token", "", "токен устройства (иначе запрашивается интерактивно)")
}
