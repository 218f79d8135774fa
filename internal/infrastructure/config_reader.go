package infrastructure

import (
	"flag"
	"os"
	"runtime"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"seedfinder/internal/app"
	"seedfinder/internal/domain"
)

type YAMLConfigReader struct {
	logger *zap.Logger
}

func NewYAMLConfigReader(logger *zap.Logger) *YAMLConfigReader {
	return &YAMLConfigReader{logger: logger}
}

// ReadConfig loads path, lets args override single settings, then fills in
// defaults.
func (r *YAMLConfigReader) ReadConfig(path string, args []string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config domain.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Применяем аргументы командной строки
	if err := r.applyCommandLineFlags(&config, args); err != nil {
		return nil, err
	}

	// Устанавливаем значения по умолчанию
	r.setDefaults(&config)

	r.logger.Debug("Config loaded",
		zap.String("path", path),
		zap.Int("workers", config.Workers),
		zap.Int("jobs", len(config.Jobs)))
	return &config, nil
}

func (r *YAMLConfigReader) applyCommandLineFlags(config *domain.Config, args []string) error {
	fs := flag.NewFlagSet("seedfinder", flag.ContinueOnError)
	fs.IntVar(&config.Workers, "workers", config.Workers, "Number of workers")
	fs.Int64Var(&config.PartitionStride, "stride", config.PartitionStride, "Seeds per search partition")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	fs.StringVar(&config.LogFile, "log-file", config.LogFile, "Log file")
	fs.StringVar(&config.PaletteFile, "palette", config.PaletteFile, "Biome palette file")
	fs.StringVar(&config.OutputDir, "out", config.OutputDir, "Directory for rendered areas")
	fs.StringVar(&config.MetricsAddr, "metrics-addr", config.MetricsAddr, "Address to serve Prometheus metrics on, empty to disable")
	return fs.Parse(args)
}

func (r *YAMLConfigReader) setDefaults(config *domain.Config) {
	if config.Workers <= 0 {
		config.Workers = max(1, runtime.NumCPU())
	}
	if config.PartitionStride <= 0 {
		config.PartitionStride = app.DefaultPartitionStride
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	for i := range config.Jobs {
		job := &config.Jobs[i]
		if job.Threads <= 0 {
			job.Threads = 1
		}
		if job.Name == "" {
			job.Name = job.Kind
		}
	}
}
