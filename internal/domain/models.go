package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Config представляет конфигурацию приложения
type Config struct {
	Workers         int    `yaml:"workers"`
	PartitionStride int64  `yaml:"partition_stride"`
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file"`
	PaletteFile     string `yaml:"palette_file"`
	OutputDir       string `yaml:"output_dir"`
	MetricsAddr     string `yaml:"metrics_addr"`
	Jobs            []Job  `yaml:"jobs"`
}

// Job is one query the batch runner submits to the queue.
type Job struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Version    string   `yaml:"version"`
	Seed       string   `yaml:"seed"`
	X          int      `yaml:"x"`
	Z          int      `yaml:"z"`
	WidthX     int      `yaml:"width_x"`
	WidthZ     int      `yaml:"width_z"`
	Range      int      `yaml:"range"`
	Dimension  int      `yaml:"dimension"`
	YHeight    int      `yaml:"y_height"`
	Biomes     []string `yaml:"biomes"`
	StructType string   `yaml:"struct_type"`
	HowMany    int      `yaml:"how_many"`
	Threads    int      `yaml:"threads"`
	StartSeed  int64    `yaml:"start_seed"`
	Force      bool     `yaml:"force"`
}

const (
	DimensionNether    = -1
	DimensionOverworld = 0
	DimensionEnd       = 1
)

// Pos is a block position on the horizontal plane.
type Pos struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ColorGrid holds packed 0xRRGGBB values, row-major, WidthY rows of WidthX.
type ColorGrid [][]uint32

// Palette maps a biome name to its packed color.
type Palette map[string]uint32

// AreaRequest is the payload of GET_AREA. Every field takes part in the
// cache fingerprint.
type AreaRequest struct {
	Version   string `json:"mcVersion"`
	Seed      string `json:"seed"`
	StartX    int    `json:"startX"`
	StartY    int    `json:"startY"`
	WidthX    int    `json:"widthX"`
	WidthY    int    `json:"widthY"`
	Dimension int    `json:"dimension"`
	YHeight   int    `json:"yHeight"`
}

// Fingerprint returns the cache key of the request.
func (r AreaRequest) Fingerprint() string {
	return strings.Join([]string{
		r.Version,
		r.Seed,
		strconv.Itoa(r.StartX),
		strconv.Itoa(r.StartY),
		strconv.Itoa(r.WidthX),
		strconv.Itoa(r.WidthY),
		strconv.Itoa(r.Dimension),
		strconv.Itoa(r.YHeight),
	}, "-")
}

// AreaResult echoes the request fields so the router can rebuild the key.
type AreaResult struct {
	AreaRequest
	Colors ColorGrid `json:"colors"`
}

type BiomeSearchRequest struct {
	Version      string   `json:"mcVersion"`
	Biomes       []string `json:"biomes"`
	X            int      `json:"x"`
	Z            int      `json:"z"`
	WidthX       int      `json:"widthX"`
	WidthZ       int      `json:"widthZ"`
	StartingSeed int64    `json:"startingSeed"`
	SeedCount    int64    `json:"seedCount,omitempty"`
	Dimension    int      `json:"dimension"`
	YHeight      int      `json:"yHeight"`
}

type StructureSearchRequest struct {
	Version      string `json:"mcVersion"`
	StructType   string `json:"structType"`
	X            int    `json:"x"`
	Z            int    `json:"z"`
	Range        int    `json:"range"`
	StartingSeed int64  `json:"startingSeed"`
	SeedCount    int64  `json:"seedCount,omitempty"`
	Dimension    int    `json:"dimension"`
}

type CombinedSearchRequest struct {
	Version      string   `json:"mcVersion"`
	StructType   string   `json:"structType"`
	Biomes       []string `json:"biomes"`
	X            int      `json:"x"`
	Z            int      `json:"z"`
	Range        int      `json:"range"`
	StartingSeed int64    `json:"startingSeed"`
	SeedCount    int64    `json:"seedCount,omitempty"`
	Dimension    int      `json:"dimension"`
	YHeight      int      `json:"yHeight"`
}

// SeedResult is the reply of every racing search. Found is false when the
// partition was exhausted without a match.
type SeedResult struct {
	Seed  int64 `json:"seed"`
	Found bool  `json:"found"`
}

type SpawnRequest struct {
	Version string `json:"mcVersion"`
	Seed    string `json:"seed"`
}

type SpawnResult struct {
	X int `json:"x"`
	Z int `json:"z"`
}

type StrongholdRequest struct {
	Version string `json:"mcVersion"`
	Seed    string `json:"seed"`
	HowMany int    `json:"howMany"`
}

type StrongholdResult struct {
	Positions []Pos `json:"positions"`
}

type RegionStructuresRequest struct {
	Version      string `json:"mcVersion"`
	StructType   string `json:"structType"`
	Seed         string `json:"seed"`
	RegionsRange int    `json:"regionsRange"`
	Dimension    int    `json:"dimension"`
}

type RegionStructuresResult struct {
	Positions []Pos `json:"positions"`
}

type ColorsResult struct {
	Colors Palette `json:"colors"`
}

// Status is a snapshot of the pool occupancy.
type Status struct {
	Total   int
	Busy    int
	Waiting int
}

var (
	ErrInvalidFileFormat = errors.New("invalid file format")
	ErrEmptyPayload      = errors.New("empty payload")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrQueueClosed       = errors.New("queue is closed")
	ErrUnknownKind       = errors.New("unknown message kind")
)

// KindError reports a message whose kind the receiver cannot handle.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("message %q: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}
