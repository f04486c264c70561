//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package learner implements the plaintext model math that the
// federated protocol drives.
package learner

import (
	"github.com/markkurossi/fedlr/vector"
)

// Learner computes gradients and predictions of a model.
type Learner interface {
	// Gradient returns the gradient of the loss at model over the
	// features x and labels y.
	Gradient(model vector.Plain, x [][]float64, y []float64) vector.Plain

	// Predict scores the features x with model.
	Predict(model vector.Plain, x [][]float64) vector.Plain
}

// LinearRegression implements least squares linear regression. The
// gradient is X^T(Xw - y), summed over all rows.
type LinearRegression struct{}

// Gradient implements Learner.Gradient.
func (lr LinearRegression) Gradient(model vector.Plain, x [][]float64,
	y []float64) vector.Plain {

	pred := lr.Predict(model, x)
	grad := vector.Zeros(len(model))

	for row, features := range x {
		delta := pred[row] - y[row]
		for col, f := range features {
			grad[col] += delta * f
		}
	}
	return grad
}

// Predict implements Learner.Predict.
func (lr LinearRegression) Predict(model vector.Plain,
	x [][]float64) vector.Plain {

	result := make(vector.Plain, len(x))
	for row, features := range x {
		var sum float64
		for col, f := range features {
			sum += f * model[col]
		}
		result[row] = sum
	}
	return result
}
