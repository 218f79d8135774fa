package infrastructure

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"seedfinder/internal/domain"
)

type TXTGridWriter struct {
	logger *zap.Logger
}

func NewTXTGridWriter(logger *zap.Logger) *TXTGridWriter {
	return &TXTGridWriter{logger: logger}
}

// WriteGrid stores a rendered area as tab separated hex colors, one row per
// line, under a header naming the request.
func (w *TXTGridWriter) WriteGrid(filename string, req domain.AreaRequest, grid domain.ColorGrid) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	writer := bufio.NewWriter(file)

	// Заголовок с параметрами запроса
	fmt.Fprintf(writer, "# %s\n", req.Fingerprint())

	row := make([]string, 0)
	for _, cells := range grid {
		row = row[:0]
		for _, c := range cells {
			row = append(row, fmt.Sprintf("%06X", c))
		}
		fmt.Fprintf(writer, "%s\n", strings.Join(row, "\t"))
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	w.logger.Debug("Grid written", zap.String("file", filename), zap.Int("rows", len(grid)))
	return nil
}
