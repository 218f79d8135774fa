package infrastructure

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"seedfinder/internal/domain"
)

type TXTPaletteReader struct {
	logger *zap.Logger
}

func NewTXTPaletteReader(logger *zap.Logger) *TXTPaletteReader {
	return &TXTPaletteReader{logger: logger}
}

// ReadPalette parses lines of "biome r g b". Blank lines and lines starting
// with # are skipped.
func (r *TXTPaletteReader) ReadPalette(filename string) (domain.Palette, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	palette := make(domain.Palette)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("%s:%d: %w", filename, line, domain.ErrInvalidFileFormat)
		}

		var rgb uint32
		for _, f := range fields[1:] {
			c, err := strconv.ParseUint(f, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filename, line, err)
			}
			rgb = rgb<<8 | uint32(c)
		}
		if _, dup := palette[fields[0]]; dup {
			r.logger.Warn("Duplicate biome in palette, last one wins",
				zap.String("biome", fields[0]),
				zap.Int("line", line))
		}
		palette[fields[0]] = rgb
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(palette) == 0 {
		return nil, domain.ErrInvalidFileFormat
	}
	return palette, nil
}
