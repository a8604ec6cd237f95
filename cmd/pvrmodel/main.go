package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/gekko3d/pvr"
	"github.com/gekko3d/pvr/rt/app"
	"github.com/gekko3d/pvr/rt/core"
	"github.com/gekko3d/pvr/rt/modeler"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

func main() {
	configFile := flag.String("config", "", "TOML configuration file")
	output := flag.String("o", "", "Field file to write, overrides [model] output")
	mapping := flag.String("mapping", "", "Buffer mapping, matrix or frustum")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := pvr.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Model.Output = *output
	}
	if *mapping != "" {
		cfg.Model.Mapping = *mapping
	}
	if *debug {
		cfg.Logging.Debug = true
	}
	if cfg.Logging.Prefix == "" {
		cfg.Logging.Prefix = "pvrmodel"
	}

	logger := cfg.Logging.NewLogger()
	if err := run(cfg.Model, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// demoScene is a sphere resting on a slab.
func demoScene() ([]modeler.Input, error) {
	ball, err := sdf.Sphere3D(1)
	if err != nil {
		return nil, err
	}
	slab, err := sdf.Box3D(v3.Vec{X: 3, Y: 0.5, Z: 3}, 0.1)
	if err != nil {
		return nil, err
	}
	return []modeler.Input{
		{SDF: sdf.Transform3D(ball, sdf.Translate3d(v3.Vec{Y: 1})), Color: mgl32.Vec3{1, 0.6, 0.2}},
		{SDF: sdf.Transform3D(slab, sdf.Translate3d(v3.Vec{Y: -0.25})), Color: mgl32.Vec3{0.2, 0.2, 0.8}},
	}, nil
}

func run(cfg pvr.ModelConfig, logger pvr.Logger) error {
	res, err := cfg.ResolutionVec()
	if err != nil {
		return err
	}
	inputs, err := demoScene()
	if err != nil {
		return err
	}

	m := modeler.New()
	switch cfg.Mapping {
	case "", "matrix":
		m.SetMapping(modeler.MatrixMappingType)
	case "frustum":
		cam := core.NewCamera()
		cam.LookAt(mgl64.Vec3{0, 2, 6}, mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0, 1, 0})
		m.SetMapping(modeler.FrustumMappingType)
		m.SetCamera(cam)
	default:
		return fmt.Errorf("unknown mapping %q", cfg.Mapping)
	}
	if cfg.VoxelSize > 0 {
		m.SetVoxelSize(mgl64.Vec3{cfg.VoxelSize, cfg.VoxelSize, cfg.VoxelSize})
	} else {
		m.SetResolution(res[0], res[1], res[2])
	}
	for _, in := range inputs {
		m.AddInput(in)
	}

	prof := app.NewProfiler()
	if err := prof.Time("bounds", m.UpdateBounds); err != nil {
		return err
	}
	if err := prof.Time("execute", m.Execute); err != nil {
		return err
	}
	w := m.Buffer().DataWindow()
	prof.SetCount("voxels", w.NumVoxels())
	if err := prof.Time("save", func() error { return m.SaveBuffer(cfg.Output) }); err != nil {
		return err
	}

	logger.Infof("Wrote %s, %v voxels", cfg.Output, w.Size())
	logger.Debugf("\n%s", prof)
	return nil
}
