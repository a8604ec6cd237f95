package pvr

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"strings"

	"github.com/gekko3d/pvr/rt/field"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z", "":
		return AxisZ, nil
	}
	return AxisZ, fmt.Errorf("unknown axis %q", s)
}

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// localPoint places image coordinates u, v on the plane at depth along a.
func (a Axis) localPoint(u, v, depth float64) mgl64.Vec3 {
	switch a {
	case AxisX:
		return mgl64.Vec3{depth, u, v}
	case AxisY:
		return mgl64.Vec3{u, depth, v}
	default:
		return mgl64.Vec3{u, v, depth}
	}
}

// Slice describes an axis aligned cut through the local space of a volume.
type Slice struct {
	Axis   Axis
	Depth  float64
	Width  int
	Height int
	// Gain scales each channel, zero means unscaled.
	Gain mgl64.Vec3
	// Interp defaults to trilinear filtering.
	Interp field.Interpolator
}

// SliceImage samples the volume's attribute over s, one row per goroutine.
func SliceImage(ctx context.Context, vol *VoxelVolume, s Slice) (*image.RGBA, error) {
	buf := vol.Buffer()
	if buf == nil {
		return nil, ErrMissingBuffer
	}
	if buf.Mapping() == nil {
		return nil, ErrMissingMapping
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("bad slice size %dx%d", s.Width, s.Height)
	}
	interp := s.Interp
	if interp == nil {
		interp = field.LinearInterp{}
	}
	attr := NewVolumeAttr(vol.AttributeNames()[0])
	mapping := buf.Mapping()
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))

	gain := s.Gain
	if gain == (mgl64.Vec3{}) {
		gain = mgl64.Vec3{1, 1, 1}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for y := 0; y < s.Height; y++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Image rows grow downwards, local space grows upwards.
			v := 1 - (float64(y)+0.5)/float64(s.Height)
			for x := 0; x < s.Width; x++ {
				u := (float64(x) + 0.5) / float64(s.Width)
				wsP := mapping.LocalToWorld(s.Axis.localPoint(u, v, s.Depth))
				c := vol.SampleFiltered(SampleState{WsP: wsP}, attr, interp)
				img.SetRGBA(x, y, toRGBA(c, gain))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

func toRGBA(c mgl32.Vec3, gain mgl64.Vec3) color.RGBA {
	channel := func(v float32, g float64) uint8 {
		f := float64(v) * g
		if math.IsNaN(f) || f <= 0 {
			return 0
		}
		if f >= 1 {
			return 255
		}
		return uint8(f*255 + 0.5)
	}
	return color.RGBA{
		R: channel(c[0], gain[0]),
		G: channel(c[1], gain[1]),
		B: channel(c[2], gain[2]),
		A: 255,
	}
}

// Upscale resizes img by an integer factor with Catmull-Rom filtering.
func Upscale(img image.Image, factor int) *image.RGBA {
	if factor < 1 {
		factor = 1
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Label writes text into the top left corner of img.
func Label(img draw.Image, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{255, 255, 0, 255}),
		Face: face,
		Dot:  fixed.P(img.Bounds().Min.X+4, img.Bounds().Min.Y+face.Ascent+4),
	}
	d.DrawString(text)
}
