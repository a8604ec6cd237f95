package pvr

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gekko3d/pvr/rt/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Config is the TOML configuration shared by the command line tools.
//
//	[logging]
//	logfile = "/tmp/pvr.log"
//	max_log_size = 100
//
//	[volume]
//	file = "smoke.h5"
//	filter = "gaussian"
//
//	[slice]
//	axis = "z"
//	depth = 0.5
//	gain = [1.0, 1.0, 1.0]
type Config struct {
	Logging LogConfig    `toml:"logging"`
	Volume  VolumeConfig `toml:"volume"`
	Slice   SliceConfig  `toml:"slice"`
	Model   ModelConfig  `toml:"model"`
}

type VolumeConfig struct {
	File string `toml:"file"`
	// Filter is "linear" or "gaussian".
	Filter string `toml:"filter"`
}

type SliceConfig struct {
	Axis   string    `toml:"axis"`
	Depth  float64   `toml:"depth"`
	Width  int       `toml:"width"`
	Height int       `toml:"height"`
	Scale  int       `toml:"scale"`
	Gain   []float64 `toml:"gain"`
	Output string    `toml:"output"`
	Label  bool      `toml:"label"`
}

type ModelConfig struct {
	Resolution []int   `toml:"resolution"`
	VoxelSize  float64 `toml:"voxel_size"`
	Mapping    string  `toml:"mapping"`
	Output     string  `toml:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		Volume: VolumeConfig{Filter: "linear"},
		Slice: SliceConfig{
			Axis:   "z",
			Depth:  0.5,
			Width:  256,
			Height: 256,
			Scale:  1,
			Output: "slice.png",
		},
		Model: ModelConfig{
			Resolution: []int{64, 64, 64},
			Mapping:    "matrix",
			Output:     "model.h5",
		},
	}
}

// LoadConfig decodes filename on top of DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(filename, cfg); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Volume.Filter) {
	case "", "linear", "gaussian":
	default:
		return fmt.Errorf("unknown filter %q", c.Volume.Filter)
	}
	if _, err := ParseAxis(c.Slice.Axis); err != nil {
		return err
	}
	if c.Slice.Width <= 0 || c.Slice.Height <= 0 {
		return fmt.Errorf("bad slice size %dx%d", c.Slice.Width, c.Slice.Height)
	}
	if c.Slice.Gain != nil {
		if _, err := c.Slice.GainVec(); err != nil {
			return fmt.Errorf("slice gain: %w", err)
		}
	}
	if _, err := c.Model.ResolutionVec(); err != nil {
		return fmt.Errorf("model resolution: %w", err)
	}
	return nil
}

// GainVec is the per channel gain, white when unset.
func (s SliceConfig) GainVec() (mgl64.Vec3, error) {
	if s.Gain == nil {
		return mgl64.Vec3{1, 1, 1}, nil
	}
	return core.AssignVec3(s.Gain)
}

func (m ModelConfig) ResolutionVec() ([3]int, error) {
	return core.AssignVec3i(m.Resolution)
}
