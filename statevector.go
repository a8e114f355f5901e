// statevector.go
package qmeasure

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// StateVector is a two-component real unit vector describing a spin or
// polarization direction in the measurement plane.
type StateVector struct {
	X float64
	Y float64
}

// NewStateVectorFromAngle builds a unit vector at the given angle, in
// radians, measured from the first basis axis.
func NewStateVectorFromAngle(theta float64) StateVector {
	return StateVector{X: math.Cos(theta), Y: math.Sin(theta)}
}

// Normalize returns the unit vector in the same direction. The zero vector
// normalizes to the first basis axis.
func (v StateVector) Normalize() StateVector {
	norm := floats.Norm([]float64{v.X, v.Y}, 2)
	if norm == 0 {
		return StateVector{X: 1}
	}
	return StateVector{X: v.X / norm, Y: v.Y / norm}
}

// Dot returns the scalar product with another vector.
func (v StateVector) Dot(o StateVector) float64 {
	return floats.Dot([]float64{v.X, v.Y}, []float64{o.X, o.Y})
}

// Angle returns the vector's angle in radians.
func (v StateVector) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

/*
ProjectionProbability returns the probability that a system in this state
is measured along the axis at basisAngle: the squared projection of the
(normalized) state onto that axis, i.e. the cosine-squared law. The result
is clamped to [0,1] so a state exactly aligned with the axis yields exactly
1 and its complement exactly 0 despite rounding.
*/
func (v StateVector) ProjectionProbability(basisAngle float64) float64 {
	p := v.Normalize().Dot(NewStateVectorFromAngle(basisAngle))
	p *= p
	if p > 1 {
		return 1
	}
	if p < floatTolerance {
		return 0
	}
	if p > 1-floatTolerance {
		return 1
	}
	return p
}

// floatTolerance absorbs rounding in trig near the axis-aligned and
// axis-orthogonal cases.
const floatTolerance = 1e-12
