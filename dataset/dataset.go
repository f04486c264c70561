//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package dataset implements the data source of the federated
// training: dataset construction and partitioning between clients.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"strconv"
)

var (
	// ErrInvalidPartition is returned when a dataset can't be
	// partitioned as requested.
	ErrInvalidPartition = errors.New("dataset: invalid partition")
)

// Dataset holds a feature matrix and its label vector. Datasets are
// not modified after construction.
type Dataset struct {
	X [][]float64
	Y []float64
}

// New creates a dataset and verifies its dimensions.
func New(x [][]float64, y []float64) (*Dataset, error) {
	ds := &Dataset{
		X: x,
		Y: y,
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks that the dataset is a rectangular matrix with one
// label per row.
func (ds *Dataset) Validate() error {
	if len(ds.X) != len(ds.Y) {
		return fmt.Errorf("dataset: %d rows, %d labels", len(ds.X), len(ds.Y))
	}
	if len(ds.X) == 0 {
		return errors.New("dataset: no rows")
	}
	cols := len(ds.X[0])
	for i, row := range ds.X {
		if len(row) != cols {
			return fmt.Errorf("dataset: row %d has %d features, expected %d",
				i, len(row), cols)
		}
	}
	return nil
}

// Len returns the number of rows.
func (ds *Dataset) Len() int {
	return len(ds.Y)
}

// Features returns the number of feature columns.
func (ds *Dataset) Features() int {
	if len(ds.X) == 0 {
		return 0
	}
	return len(ds.X[0])
}

// AddIntercept returns a new dataset with a constant 1 column
// appended to emulate the model intercept.
func (ds *Dataset) AddIntercept() *Dataset {
	x := make([][]float64, len(ds.X))
	for i, row := range ds.X {
		r := make([]float64, len(row)+1)
		copy(r, row)
		r[len(row)] = 1
		x[i] = r
	}
	return &Dataset{
		X: x,
		Y: ds.Y,
	}
}

// Subset returns a new dataset with the rows idx.
func (ds *Dataset) Subset(idx []int) *Dataset {
	result := &Dataset{
		X: make([][]float64, len(idx)),
		Y: make([]float64, len(idx)),
	}
	for i, row := range idx {
		result.X[i] = ds.X[row]
		result.Y[i] = ds.Y[row]
	}
	return result
}

// Concat returns a dataset holding the rows of all argument
// datasets.
func Concat(parts ...*Dataset) *Dataset {
	result := new(Dataset)
	for _, p := range parts {
		result.X = append(result.X, p.X...)
		result.Y = append(result.Y, p.Y...)
	}
	return result
}

// Partition shuffles the dataset, selects testSize random rows as the
// held-out test set, and splits the remaining training rows into
// clientCount contiguous, equally sized client partitions. Training
// rows that do not divide evenly are dropped.
func Partition(ds *Dataset, clientCount, testSize int, rnd *mrand.Rand) (
	[]*Dataset, *Dataset, error) {

	if clientCount <= 0 {
		return nil, nil, fmt.Errorf("%w: %d clients", ErrInvalidPartition,
			clientCount)
	}
	if testSize < 0 || testSize >= ds.Len() {
		return nil, nil, fmt.Errorf("%w: test size %d for %d rows",
			ErrInvalidPartition, testSize, ds.Len())
	}
	step := (ds.Len() - testSize) / clientCount
	if step == 0 {
		return nil, nil, fmt.Errorf("%w: %d training rows for %d clients",
			ErrInvalidPartition, ds.Len()-testSize, clientCount)
	}

	shuffled := ds.Subset(rnd.Perm(ds.Len()))

	isTest := make([]bool, shuffled.Len())
	var testIdx []int
	for _, idx := range rnd.Perm(shuffled.Len())[:testSize] {
		isTest[idx] = true
		testIdx = append(testIdx, idx)
	}
	var trainIdx []int
	for idx, test := range isTest {
		if !test {
			trainIdx = append(trainIdx, idx)
		}
	}
	test := shuffled.Subset(testIdx)
	train := shuffled.Subset(trainIdx)

	// The split is not random: each client sees a potentially very
	// different sample of the population.
	clients := make([]*Dataset, clientCount)
	for c := 0; c < clientCount; c++ {
		idx := make([]int, step)
		for i := range idx {
			idx[i] = step*c + i
		}
		clients[c] = train.Subset(idx)
	}
	return clients, test, nil
}

// ReadCSV reads a numeric CSV dataset. The column target holds the
// labels and all other columns are features. Negative target values
// count from the last column. If header is true, the first record is
// skipped.
func ReadCSV(in io.Reader, target int, header bool) (*Dataset, error) {
	records, err := csv.NewReader(in).ReadAll()
	if err != nil {
		return nil, err
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	ds := new(Dataset)
	for line, record := range records {
		col := target
		if col < 0 {
			col += len(record)
		}
		if col < 0 || col >= len(record) {
			return nil, fmt.Errorf("dataset: record %d: invalid target column %d",
				line, target)
		}
		var row []float64
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: record %d: column %d: %w",
					line, i, err)
			}
			if i == col {
				ds.Y = append(ds.Y, v)
			} else {
				row = append(row, v)
			}
		}
		ds.X = append(ds.X, row)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}
