package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"fieldsync/cmd/client/cmd/types"
	"fieldsync/internal/app/client"

	"github.com/spf13/cobra"
)

var (
	lat, lon, accuracy float64
)

var LocationCmd = &cobra.Command{
	Use:   "location",
	Short: "Маршрут торгового агента",
}

var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Записать текущую точку",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		s, err := app.RecordLocation(cmd.Context(), lat, lon, accuracy)
		if err != nil {
			return err
		}
		if types.JSON(cmd) {
			return types.PrintJSON(s)
		}
		fmt.Printf("✓ Точка %s сохранена (%.5f, %.5f)\n", s.ID, s.Latitude, s.Longitude)
		return nil
	},
}

var TrackCmd = &cobra.Command{
	Use:   "track",
	Short: "Записывать маршрут и синхронизироваться в фоне",
	Long: `Запускает фоновую работу клиента: периодически снимает координаты,
проверяет связь и выполняет синхронизацию.

Координаты читаются со стандартного ввода строками "lat lon [accuracy]",
например из gpspipe. Команда работает до Ctrl+C.`,
	Example: `  gpspipe -w | jq -r 'select(.class=="TPV") | "\(.lat) \(.lon) \(.epx)"' | fieldsync location track`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		fmt.Println("Трекинг запущен, Ctrl+C для остановки")
		return app.Run(cmd.Context(), newStdinProvider(os.Stdin))
	},
}

// stdinProvider отдает последнюю прочитанную со входа позицию
type stdinProvider struct {
	mu   sync.Mutex
	last *client.Position
	err  error
}

func newStdinProvider(r io.Reader) *stdinProvider {
	p := &stdinProvider{}
	go p.read(r)
	return p
}

func (p *stdinProvider) read(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		pos, err := parsePosition(sc.Text())
		if err != nil {
			continue
		}
		p.mu.Lock()
		p.last = &pos
		p.mu.Unlock()
	}
	p.mu.Lock()
	p.err = errors.New("источник координат закрыт")
	p.mu.Unlock()
}

func (p *stdinProvider) Position(context.Context) (client.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		if p.err != nil {
			return client.Position{}, p.err
		}
		return client.Position{}, errors.New("нет координат")
	}
	pos := *p.last
	p.last = nil
	return pos, nil
}

func parsePosition(line string) (client.Position, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return client.Position{}, fmt.Errorf("ожидается lat lon [accuracy]")
	}
	var vals [3]float64
	for i := 0; i < len(fields) && i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return client.Position{}, err
		}
		vals[i] = v
	}
	return client.Position{Latitude: vals[0], Longitude: vals[1], Accuracy: vals[2]}, nil
}

func init() {
	RecordCmd.Flags().Float64Var(&lat, "lat", 0, "широта")
	RecordCmd.Flags().Float64Var(&lon, "lon", 0, "долгота")
	RecordCmd.Flags().Float64Var(&accuracy, "accuracy", 0, "точность, м")
	_ = RecordCmd.MarkFlagRequired("lat")
	_ = RecordCmd.MarkFlagRequired("lon")
}
