//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package protocol implements the round orchestrator of the federated
// learning protocol. Each round folds the participants' encrypted
// gradients into one running sum, lets the aggregator decrypt the
// average, and distributes it to all participants.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/markkurossi/fedlr/aggregator"
	"github.com/markkurossi/fedlr/metrics"
	"github.com/markkurossi/fedlr/paillier"
	"github.com/markkurossi/fedlr/vector"
)

const (
	// DefaultRounds is the default number of training rounds.
	DefaultRounds = 50

	// DefaultLearningRate is the default gradient step size.
	DefaultLearningRate = 0.01

	// AggregatorID is the party ID of the aggregator in link
	// transfers. Participants have IDs 0...n-1.
	AggregatorID = -1
)

var (
	// ErrNoParticipants is returned when the protocol is created
	// without participants.
	ErrNoParticipants = errors.New("protocol: no participants")
)

// State defines the orchestrator states.
type State int

// Orchestrator states.
const (
	Idle State = iota
	Aggregating
	Distributing
	Done
)

var stateNames = map[State]string{
	Idle:         "idle",
	Aggregating:  "aggregating",
	Distributing: "distributing",
	Done:         "done",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if ok {
		return name
	}
	return fmt.Sprintf("{State %d}", s)
}

// Aggregator implements the server role.
type Aggregator interface {
	// DecryptAndScale decrypts the summed gradients and divides them
	// by clientCount.
	DecryptAndScale(summed vector.Encrypted, clientCount int) (
		vector.Plain, error)
}

// Participant implements the client role.
type Participant interface {
	Name() string
	EncryptGradient() (vector.Encrypted, error)
	EncryptedGradient(sumTo vector.Encrypted) (vector.Encrypted, error)
	GradientStep(g vector.Plain, eta float64) error
	Snapshot() vector.Plain
	Restore(snapshot vector.Plain) error
}

// Link moves the running encrypted sum from party from to party
// to. The aggregator is identified by AggregatorID.
type Link interface {
	Forward(ctx context.Context, from, to int, v vector.Encrypted) (
		vector.Encrypted, error)
}

type localLink struct{}

func (l localLink) Forward(ctx context.Context, from, to int,
	v vector.Encrypted) (vector.Encrypted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

// Config defines the protocol parameters.
type Config struct {
	// Rounds specifies the number of training rounds. The default
	// is DefaultRounds.
	Rounds int

	// LearningRate specifies the gradient step size. The default is
	// DefaultLearningRate.
	LearningRate float64

	// RoundTimeout limits the duration of one round. Zero means no
	// limit.
	RoundTimeout time.Duration

	// MaxRetries specifies how many times a failed round is retried
	// before the run fails.
	MaxRetries int

	// Parallel computes participant gradients concurrently.
	Parallel bool

	// Link carries the running sum between parties. The default link
	// passes vectors in memory.
	Link Link

	// OnRound is called after each completed round with the
	// distributed average gradient.
	OnRound func(round int, avg vector.Plain)

	Verbose bool
}

// Result contains the protocol run statistics.
type Result struct {
	Rounds  int
	Retries int
	Timing  *metrics.Timing
}

// Orchestrator runs the training rounds.
type Orchestrator struct {
	cfg     Config
	server  Aggregator
	clients []Participant

	m     sync.Mutex
	state State
}

// New creates a new orchestrator for the aggregator and participants.
// The participants are folded in the argument order.
func New(server Aggregator, clients []Participant, cfg Config) (
	*Orchestrator, error) {

	if server == nil {
		return nil, errors.New("protocol: no aggregator")
	}
	if len(clients) == 0 {
		return nil, ErrNoParticipants
	}
	if cfg.Rounds < 0 {
		return nil, fmt.Errorf("protocol: invalid rounds: %d", cfg.Rounds)
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = DefaultRounds
	}
	if cfg.LearningRate < 0 {
		return nil, fmt.Errorf("protocol: invalid learning rate: %v",
			cfg.LearningRate)
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = DefaultLearningRate
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("protocol: invalid retries: %d", cfg.MaxRetries)
	}
	if cfg.Link == nil {
		cfg.Link = localLink{}
	}
	return &Orchestrator{
		cfg:     cfg,
		server:  server,
		clients: clients,
	}, nil
}

// Debugf prints debugging message if Verbose debugging is enabled.
func (o *Orchestrator) Debugf(format string, a ...interface{}) {
	if !o.cfg.Verbose {
		return
	}
	log.Printf(format, a...)
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	o.m.Lock()
	defer o.m.Unlock()
	return o.state
}

func (o *Orchestrator) setState(state State) {
	o.m.Lock()
	o.state = state
	o.m.Unlock()
}

// IsFatal tests if the error aborts the protocol run. Cryptographic
// and dimensional errors are fatal; transport errors and round
// timeouts can be retried.
func IsFatal(err error) bool {
	return errors.Is(err, paillier.ErrKeyGeneration) ||
		errors.Is(err, paillier.ErrEncodingOverflow) ||
		errors.Is(err, paillier.ErrKeyMismatch) ||
		errors.Is(err, paillier.ErrIncompatibleOperands) ||
		errors.Is(err, vector.ErrLengthMismatch) ||
		errors.Is(err, aggregator.ErrInvalidClientCount)
}

// Run runs the configured number of training rounds. A round either
// completes for all participants or all participant models are
// restored to their state before the round.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Timing: metrics.NewTiming(),
	}
	defer func() {
		if o.State() != Done {
			o.setState(Idle)
		}
	}()

	for round := 1; round <= o.cfg.Rounds; round++ {
		for attempt := 0; ; attempt++ {
			snapshots := make([]vector.Plain, len(o.clients))
			for i, c := range o.clients {
				snapshots[i] = c.Snapshot()
			}
			avg, err := o.round(ctx, result.Timing)
			if err == nil {
				if o.cfg.OnRound != nil {
					o.cfg.OnRound(round, avg)
				}
				break
			}
			for i, c := range o.clients {
				if rerr := c.Restore(snapshots[i]); rerr != nil {
					return result, fmt.Errorf("protocol: round %d: %w",
						round, rerr)
				}
			}
			o.setState(Idle)
			if ctx.Err() != nil || IsFatal(err) || attempt >= o.cfg.MaxRetries {
				return result, fmt.Errorf("protocol: round %d: %w", round, err)
			}
			result.Retries++
			o.Debugf("round %d: attempt %d failed: %v\n", round, attempt+1, err)
		}
		result.Rounds++
	}
	o.setState(Done)
	return result, nil
}

func (o *Orchestrator) round(ctx context.Context, timing *metrics.Timing) (
	vector.Plain, error) {

	if o.cfg.RoundTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RoundTimeout)
		defer cancel()
	}

	o.setState(Aggregating)

	var sum vector.Encrypted
	var err error
	if o.cfg.Parallel {
		sum, err = o.aggregateParallel(ctx, timing)
	} else {
		sum, err = o.aggregate(ctx, timing)
	}
	if err != nil {
		return nil, err
	}
	sum, err = o.forward(ctx, timing, len(o.clients)-1, AggregatorID, sum)
	if err != nil {
		return nil, err
	}

	var avg vector.Plain
	err = timing.Measure("Decrypt", func() error {
		var err error
		avg, err = o.server.DecryptAndScale(sum, len(o.clients))
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.setState(Distributing)
	err = timing.Measure("Update", func() error {
		for _, c := range o.clients {
			if err := c.GradientStep(avg, o.cfg.LearningRate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.setState(Idle)

	return avg, nil
}

func (o *Orchestrator) aggregate(ctx context.Context,
	timing *metrics.Timing) (vector.Encrypted, error) {

	var sum vector.Encrypted
	var err error

	for i, c := range o.clients {
		if i > 0 {
			sum, err = o.forward(ctx, timing, i-1, i, sum)
			if err != nil {
				return nil, err
			}
		}
		err = timing.Measure("Encrypt", func() error {
			var err error
			sum, err = c.EncryptedGradient(sum)
			return err
		})
		if err != nil {
			return nil, err
		}
		o.Debugf("%s: added gradient to running sum\n", c.Name())
	}
	return sum, nil
}

func (o *Orchestrator) aggregateParallel(ctx context.Context,
	timing *metrics.Timing) (vector.Encrypted, error) {

	grads := make([]vector.Encrypted, len(o.clients))
	errs := make([]error, len(o.clients))

	start := time.Now()
	var wg sync.WaitGroup
	for i, c := range o.clients {
		wg.Add(1)
		go func(i int, c Participant) {
			defer wg.Done()
			grads[i], errs[i] = c.EncryptGradient()
		}(i, c)
	}
	wg.Wait()
	timing.Add("Encrypt", time.Since(start))

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sum := grads[0]
	for i := 1; i < len(grads); i++ {
		var err error
		sum, err = o.forward(ctx, timing, i-1, i, sum)
		if err != nil {
			return nil, err
		}
		sum, err = vector.Sum(sum, grads[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.clients[i].Name(), err)
		}
	}
	return sum, nil
}

func (o *Orchestrator) forward(ctx context.Context, timing *metrics.Timing,
	from, to int, v vector.Encrypted) (vector.Encrypted, error) {

	var result vector.Encrypted
	err := timing.Measure("Transfer", func() error {
		var err error
		result, err = o.cfg.Link.Forward(ctx, from, to, v)
		return err
	})
	return result, err
}
