package domain

// PaletteReader интерфейс для чтения палитры биомов
type PaletteReader interface {
	ReadPalette(filename string) (Palette, error)
}

// GridWriter интерфейс для записи результатов
type GridWriter interface {
	WriteGrid(filename string, req AreaRequest, grid ColorGrid) error
}

// ConfigReader интерфейс для чтения конфигурации
type ConfigReader interface {
	ReadConfig(path string, args []string) (*Config, error)
}
