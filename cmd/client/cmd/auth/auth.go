package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd - родительская команда для работы с токеном устройства
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Токен устройства",
	Long:  `Вход по токену устройства, выход и проверка состояния.`,
}
