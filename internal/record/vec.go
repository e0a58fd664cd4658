package record

import "math"

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec) Mul(n float64) Vec {
	return Vec{X: v.X * n, Y: v.Y * n}
}

func (v Vec) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Unit returns the normalized vector, or the zero vector unchanged.
func (v Vec) Unit() Vec {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec{X: v.X / l, Y: v.Y / l}
}

func (v Vec) Dist(o Vec) float64 {
	return v.Sub(o).Len()
}

func (v Vec) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// OnCircle places the index-th of count points evenly on a circle around the origin.
func OnCircle(index, count int, radius float64) Vec {
	if count <= 0 {
		return Vec{}
	}
	angle := float64(index) * 2 * math.Pi / float64(count)
	return Vec{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius}
}
