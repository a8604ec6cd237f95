package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"strings"

	"github.com/gekko3d/pvr"
	"github.com/gekko3d/pvr/rt/app"
	"github.com/gekko3d/pvr/rt/field"
)

func main() {
	configFile := flag.String("config", "", "TOML configuration file")
	volumeFile := flag.String("volume", "", "Field file to load, overrides [volume] file")
	output := flag.String("o", "", "PNG to write, overrides [slice] output")
	axis := flag.String("axis", "", "Slice axis x, y or z")
	depth := flag.Float64("depth", -1, "Local space depth of the slice in [0,1]")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := pvr.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *volumeFile != "" {
		cfg.Volume.File = *volumeFile
	}
	if *output != "" {
		cfg.Slice.Output = *output
	}
	if *axis != "" {
		cfg.Slice.Axis = *axis
	}
	if *depth >= 0 {
		cfg.Slice.Depth = *depth
	}
	if *debug {
		cfg.Logging.Debug = true
	}
	if cfg.Logging.Prefix == "" {
		cfg.Logging.Prefix = "pvrslice"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := cfg.Logging.NewLogger()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *pvr.Config, logger pvr.Logger) error {
	if cfg.Volume.File == "" {
		return fmt.Errorf("no volume file given")
	}
	axis, err := pvr.ParseAxis(cfg.Slice.Axis)
	if err != nil {
		return err
	}
	gain, err := cfg.Slice.GainVec()
	if err != nil {
		return err
	}
	var interp field.Interpolator = field.LinearInterp{}
	if strings.EqualFold(cfg.Volume.Filter, "gaussian") {
		interp = field.NewGaussianInterp()
	}

	prof := app.NewProfiler()
	vol := pvr.NewVoxelVolume(pvr.WithLogger(logger))

	prof.BeginScope("load")
	vol.Load(cfg.Volume.File)
	prof.EndScope("load")
	if vol.Buffer() == nil {
		return fmt.Errorf("nothing to slice in %s", cfg.Volume.File)
	}

	slice := pvr.Slice{
		Axis:   axis,
		Depth:  cfg.Slice.Depth,
		Width:  cfg.Slice.Width,
		Height: cfg.Slice.Height,
		Gain:   gain,
		Interp: interp,
	}
	prof.BeginScope("slice")
	img, err := pvr.SliceImage(ctx, vol, slice)
	prof.EndScope("slice")
	if err != nil {
		return err
	}
	prof.SetCount("pixels", slice.Width*slice.Height)

	out := pvr.Upscale(img, cfg.Slice.Scale)
	if cfg.Slice.Label {
		pvr.Label(out, fmt.Sprintf("%s %s=%.3f", vol.AttributeNames()[0], axis, slice.Depth))
	}

	err = prof.Time("write", func() error {
		f, err := os.Create(cfg.Slice.Output)
		if err != nil {
			return err
		}
		if err := png.Encode(f, out); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", cfg.Slice.Output, err)
	}

	logger.Infof("Wrote %s", cfg.Slice.Output)
	logger.Debugf("\n%s", prof)
	return nil
}
