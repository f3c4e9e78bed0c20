// Package render draws archived frames as PNG images through a perspective
// camera orbiting the origin.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/cloudsim/internal/archive"
)

// Camera places the viewer. The camera sits Distance from the origin looking
// at it, and the scene turns Spin degrees about the y axis per frame.
type Camera struct {
	Width, Height int
	Distance      float64
	FOV           float64 // vertical field of view, degrees
	Spin          float64
}

// DefaultCamera frames a region about distance/2 across.
func DefaultCamera(distance float64) Camera {
	return Camera{Width: 1920, Height: 1080, Distance: distance, FOV: 60, Spin: 0.25}
}

var (
	gray   = color.RGBA{128, 128, 128, 255}
	red    = color.RGBA{255, 0, 0, 255}
	green  = color.RGBA{0, 255, 0, 255}
	blue   = color.RGBA{0, 0, 255, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	purple = color.RGBA{255, 0, 255, 255}
	cyan   = color.RGBA{0, 255, 255, 255}
	orange = color.RGBA{255, 128, 0, 255}
)

// Palette colors bodies by type name. Unknown types are purple.
var Palette = map[string]color.Color{
	"cloud":       color.White,
	"star":        yellow,
	"massivestar": cyan,
	"supernova":   orange,
}

func colorOf(typeName string) color.Color {
	if c, ok := Palette[typeName]; ok {
		return c
	}
	return purple
}

// Renderer draws frames. Bound is the half-size of the reference box drawn
// around the origin; zero leaves it out.
type Renderer struct {
	cam   Camera
	bound float64
	vp    mgl64.Mat4
}

func New(cam Camera, bound float64) *Renderer {
	campos := mgl64.Vec3{1, 1, 5}.
		Normalize().
		Mul(cam.Distance)
	view := mgl64.LookAtV(
		campos,
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0, 1, 0}) // a point exactly at the camera position divides by zero
	proj := mgl64.Perspective(mgl64.DegToRad(cam.FOV), float64(cam.Width)/float64(cam.Height), 0.1, 100)
	return &Renderer{cam: cam, bound: bound, vp: proj.Mul4(view)}
}

// corners of the cube of half-size s centered on the origin.
func corners(s float64) [8]mgl64.Vec3 {
	var c [8]mgl64.Vec3
	for i := range c {
		for k := 0; k < 3; k++ {
			c[i][k] = -s
			if i&(1<<k) != 0 {
				c[i][k] = s
			}
		}
	}
	return c
}

var cornerOrder = [12][2]uint8{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// background draws the axes and the reference box.
func (r *Renderer) background(img draw.Image, rvp mgl64.Mat4) {
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	axisLength := r.cam.Distance / 10
	zero := mgl64.Vec3{}
	plotline3d(img, red, rvp, zero, mgl64.Vec3{axisLength, 0, 0})
	plotline3d(img, green, rvp, zero, mgl64.Vec3{0, axisLength, 0})
	plotline3d(img, blue, rvp, zero, mgl64.Vec3{0, 0, axisLength})

	if r.bound > 0 {
		c := corners(r.bound)
		for _, e := range cornerOrder {
			plotline3d(img, gray, rvp, c[e[0]], c[e[1]])
		}
	}
}

// Frame draws f. Heavier bodies are drawn last so they stay on top. Bodies
// whose radius projects to more than a pixel are drawn as discs, except
// supernova shells which are drawn as rings.
func (r *Renderer) Frame(f archive.Frame) *image.RGBA {
	bodies := make([]archive.Body, len(f.Bodies))
	copy(bodies, f.Bodies)
	sort.SliceStable(bodies, func(i, j int) bool {
		return bodies[i].Mass < bodies[j].Mass
	})

	rot := mgl64.HomogRotate3DY(mgl64.DegToRad(float64(f.Frame) * r.cam.Spin))
	rvp := r.vp.Mul4(rot) // final rotated view-projection matrix for this frame

	film := image.NewRGBA(image.Rect(0, 0, r.cam.Width, r.cam.Height))
	r.background(film, rvp)

	for _, b := range bodies {
		world := mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
		col := colorOf(b.Type)

		x, y, ok := project(film, rvp, world)
		if !ok {
			continue
		}
		radius := 0
		if b.Radius > 0 {
			edge := world.Add(mgl64.Vec3{float64(b.Radius), 0, 0})
			if ex, ey, ok := project(film, rvp, edge); ok {
				radius = int(mgl64.Vec2{float64(ex - x), float64(ey - y)}.Len())
			}
		}
		switch {
		case radius < 1:
			film.Set(x, y, col)
		case b.Type == "supernova":
			plotcircle(film, col, x, y, radius)
		default:
			plotcirclefilled(film, col, x, y, radius)
		}
	}
	return film
}

// WritePNG encodes the rendering of f to w.
func (r *Renderer) WritePNG(w io.Writer, f archive.Frame) error {
	return png.Encode(w, r.Frame(f))
}

// WriteFile renders f into dir, naming the file after the frame number.
func (r *Renderer) WriteFile(dir string, f archive.Frame) (string, error) {
	name := filepath.Join(dir, fmt.Sprintf("%010d.png", f.Frame))
	file, err := os.Create(name)
	if err != nil {
		return "", err
	}
	if err := r.WritePNG(file, f); err != nil {
		file.Close()
		os.Remove(name)
		return "", err
	}
	return name, file.Close()
}
