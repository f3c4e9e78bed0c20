package render

import (
	"image/color"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// plotline draws a simple line on img from (x0,y0) to (x1,y1).
//
// This is Bresenham's line algorithm as given at
// https://en.wikipedia.org/wiki/Bresenham%27s_line_algorithm.
func plotline(img draw.Image, c color.Color, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// plotcirclefilled draws a filled circle at (x0,y0) of radius r.
func plotcirclefilled(img draw.Image, c color.Color, x0, y0, r int) {
	rsqr := float64(r * r)
	for y := r; y >= 0; y-- {
		xright := int(math.Sqrt(rsqr - float64(y*y)))
		for x := -xright; x <= xright; x++ {
			img.Set(x0+x, y0+y, c)
			img.Set(x0+x, y0-y, c)
		}
	}
}

// plotcircle draws an unfilled circle at (x0,y0) of radius r.
func plotcircle(img draw.Image, c color.Color, x0, y0, r int) {
	x := r
	for y := 0; y <= x; y++ {
		img.Set(x0+x, y0+y, c)
		img.Set(x0+x, y0-y, c)
		img.Set(x0-x, y0+y, c)
		img.Set(x0-x, y0-y, c)

		img.Set(x0+y, y0+x, c)
		img.Set(x0+y, y0-x, c)
		img.Set(x0-y, y0+x, c)
		img.Set(x0-y, y0-x, c)
		d := 2*(x*x+y*y-r*r+2*y+1) + 1 - 2*x
		if d > 0 {
			x--
		}
	}
}

// project maps p to screen coordinates, reporting false for points behind
// the camera.
func project(img draw.Image, vp mgl64.Mat4, p mgl64.Vec3) (x, y int, ok bool) {
	t := vp.Mul4x1(p.Vec4(1))
	if t[3] <= 0 {
		return 0, 0, false
	}
	t = t.Mul(1 / t[3]) // t in NDC space
	x, y = mgl64.GLToScreenCoords(t.X(), t.Y(), img.Bounds().Dx(), img.Bounds().Dy())
	return x, y, true
}

// nearW is the clip-space w of the plane lines are cut at when they pass
// behind the camera.
const nearW = 0.1

// plotline3d draws a line from p1 to p2, clipped to the near plane and to
// the image.
func plotline3d(img draw.Image, c color.Color, vp mgl64.Mat4, p1, p2 mgl64.Vec3) {
	a := vp.Mul4x1(p1.Vec4(1))
	b := vp.Mul4x1(p2.Vec4(1))
	switch {
	case a[3] < nearW && b[3] < nearW:
		return
	case a[3] < nearW:
		lerpwto0(&a, &b)
	case b[3] < nearW:
		lerpwto0(&b, &a)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	x1, y1 := mgl64.GLToScreenCoords(a.X()/a[3], a.Y()/a[3], w, h)
	x2, y2 := mgl64.GLToScreenCoords(b.X()/b[3], b.Y()/b[3], w, h)

	seg, ok := clipRect(
		[4]float64{float64(x1), float64(y1), float64(x2), float64(y2)},
		float64(w-1), float64(h-1))
	if !ok {
		return
	}
	plotline(img, c,
		int(math.Round(seg[0])), int(math.Round(seg[1])),
		int(math.Round(seg[2])), int(math.Round(seg[3])))
}

// lerpwto0 moves low along the segment to high until its w is nearW.
func lerpwto0(low, high *mgl64.Vec4) {
	t := param(nearW, low[3], high[3])
	for i := 0; i < 3; i++ {
		low[i] += t * (high[i] - low[i])
	}
	low[3] = nearW
}

// clipRect cuts the segment (x0,y0)-(x1,y1) to [0,xmax]x[0,ymax]
// (Liang-Barsky). It reports false if nothing is left.
func clipRect(seg [4]float64, xmax, ymax float64) ([4]float64, bool) {
	x0, y0 := seg[0], seg[1]
	dx, dy := seg[2]-x0, seg[3]-y0
	lo, hi := 0.0, 1.0
	for _, e := range [4][2]float64{{-dx, x0}, {dx, xmax - x0}, {-dy, y0}, {dy, ymax - y0}} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return seg, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			lo = math.Max(lo, r)
		} else {
			hi = math.Min(hi, r)
		}
		if lo > hi {
			return seg, false
		}
	}
	return [4]float64{x0 + lo*dx, y0 + lo*dy, x0 + hi*dx, y0 + hi*dy}, true
}

// param returns where x lies between low and high as a fraction.
func param(x, low, high float64) float64 {
	return (x - low) / (high - low)
}
