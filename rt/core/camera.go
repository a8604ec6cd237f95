package core

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective camera looking down its local -Z axis with +Y
// up, the OpenGL convention used by mgl64.Perspective.
type Camera struct {
	Transform *Transform
	FovY      float64 // radians
	Aspect    float64
	Near      float64
	Far       float64
}

func NewCamera() *Camera {
	return &Camera{
		Transform: NewTransform(),
		FovY:      mgl64.DegToRad(45),
		Aspect:    1.0,
		Near:      0.1,
		Far:       1000.0,
	}
}

// LookAt places the camera at eye looking at center.
func (c *Camera) LookAt(eye, center, up mgl64.Vec3) {
	c.Transform.Position = eye
	// LookAtV is world to camera; the camera rotation is its inverse.
	c.Transform.Rotation = mgl64.Mat4ToQuat(mgl64.LookAtV(eye, center, up)).Normalize().Conjugate()
}

func (c *Camera) CameraToWorld() mgl64.Mat4 {
	t := *c.Transform
	t.Scale = mgl64.Vec3{1, 1, 1}
	return t.ObjectToWorld()
}

func (c *Camera) WorldToCamera() mgl64.Mat4 {
	t := *c.Transform
	t.Scale = mgl64.Vec3{1, 1, 1}
	return t.WorldToObject()
}

func (c *Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// Depth returns the distance of a world space point in front of the camera.
func (c *Camera) Depth(ws mgl64.Vec3) float64 {
	return -mgl64.TransformCoordinate(ws, c.WorldToCamera()).Z()
}
