//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package participant implements the client role of the federated
// learning protocol. A client owns its dataset partition and local
// model and contributes only encrypted gradients to the aggregate.
package participant

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/markkurossi/fedlr/dataset"
	"github.com/markkurossi/fedlr/learner"
	"github.com/markkurossi/fedlr/paillier"
	"github.com/markkurossi/fedlr/vector"
	"github.com/markkurossi/text/superscript"
)

// Client implements a federated learning participant.
type Client struct {
	Verbose bool
	id      int
	name    string
	data    *dataset.Dataset
	pub     *paillier.PublicKey
	learner learner.Learner
	random  io.Reader
	model   vector.Plain
}

// Option configures a client.
type Option func(c *Client)

// WithLearner sets the learner that computes gradients and
// predictions. The default learner is learner.LinearRegression.
func WithLearner(l learner.Learner) Option {
	return func(c *Client) {
		c.learner = l
	}
}

// WithRandom sets the entropy source for gradient encryption.
func WithRandom(r io.Reader) Option {
	return func(c *Client) {
		c.random = r
	}
}

// WithID sets the numeric client ID used in debug output.
func WithID(id int) Option {
	return func(c *Client) {
		c.id = id
	}
}

// WithVerbose enables verbose debug output.
func WithVerbose(verbose bool) Option {
	return func(c *Client) {
		c.Verbose = verbose
	}
}

// New creates a new client for the dataset partition. The client
// model is initialized to zero weights.
func New(name string, part *dataset.Dataset, pub *paillier.PublicKey,
	opts ...Option) (*Client, error) {

	if part == nil {
		return nil, errors.New("participant: no dataset")
	}
	if err := part.Validate(); err != nil {
		return nil, fmt.Errorf("participant %s: %w", name, err)
	}
	if part.Len() == 0 {
		return nil, fmt.Errorf("participant %s: empty dataset", name)
	}
	if pub == nil {
		return nil, errors.New("participant: no public key")
	}
	c := &Client{
		name:    name,
		data:    part,
		pub:     pub,
		learner: learner.LinearRegression{},
		random:  rand.Reader,
		model:   vector.Zeros(part.Features()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Debugf prints debugging message if Verbose debugging is enabled for
// this client.
func (c *Client) Debugf(format string, a ...interface{}) {
	if !c.Verbose {
		return
	}
	log.Printf("%s%s: %s", c.name, c.IDString(), fmt.Sprintf(format, a...))
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.name
}

// IDString returns the client ID as string.
func (c *Client) IDString() string {
	return superscript.Itoa(c.id)
}

// Dataset returns the client's dataset partition.
func (c *Client) Dataset() *dataset.Dataset {
	return c.data
}

// Model returns a copy of the client's current model.
func (c *Client) Model() vector.Plain {
	return c.model.Copy()
}

// ComputeGradient computes the plaintext gradient of the current
// model over the local dataset.
func (c *Client) ComputeGradient() vector.Plain {
	return c.learner.Gradient(c.model, c.data.X, c.data.Y)
}

// GradientStep updates the model with the gradient g and learning rate
// eta: model -= eta*g.
func (c *Client) GradientStep(g vector.Plain, eta float64) error {
	if len(g) != len(c.model) {
		return fmt.Errorf("participant %s: gradient of %d elements: %w",
			c.name, len(g), vector.ErrLengthMismatch)
	}
	for i := range c.model {
		c.model[i] -= eta * g[i]
	}
	return nil
}

// Predict scores the features x with the current model.
func (c *Client) Predict(x [][]float64) vector.Plain {
	return c.learner.Predict(c.model, x)
}

// EncryptGradient computes the local gradient and encrypts it with the
// aggregator's public key.
func (c *Client) EncryptGradient() (vector.Encrypted, error) {
	enc, err := vector.Encrypt(c.random, c.pub, c.ComputeGradient())
	if err != nil {
		return nil, fmt.Errorf("participant %s: %w", c.name, err)
	}
	return enc, nil
}

// EncryptedGradient computes and encrypts the local gradient and adds
// it to the running encrypted sum sumTo. If sumTo is nil, the
// encrypted gradient is returned alone.
func (c *Client) EncryptedGradient(sumTo vector.Encrypted) (
	vector.Encrypted, error) {

	if sumTo != nil && len(sumTo) != len(c.model) {
		return nil, fmt.Errorf("participant %s: sum of %d elements: %w",
			c.name, len(sumTo), vector.ErrLengthMismatch)
	}
	enc, err := c.EncryptGradient()
	if err != nil {
		return nil, err
	}
	if sumTo == nil {
		c.Debugf("encrypted gradient of %d elements\n", len(enc))
		return enc, nil
	}
	sum, err := vector.Sum(sumTo, enc)
	if err != nil {
		return nil, fmt.Errorf("participant %s: %w", c.name, err)
	}
	c.Debugf("added gradient to running sum\n")
	return sum, nil
}

// Fit trains the model locally without federation.
func (c *Client) Fit(iterations int, eta float64) error {
	for i := 0; i < iterations; i++ {
		if err := c.GradientStep(c.ComputeGradient(), eta); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the model for Restore.
func (c *Client) Snapshot() vector.Plain {
	return c.model.Copy()
}

// Restore resets the model to the snapshot.
func (c *Client) Restore(snapshot vector.Plain) error {
	if len(snapshot) != len(c.model) {
		return fmt.Errorf("participant %s: snapshot of %d elements: %w",
			c.name, len(snapshot), vector.ErrLengthMismatch)
	}
	copy(c.model, snapshot)
	return nil
}
