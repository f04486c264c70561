//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/markkurossi/fedlr/aggregator"
	"github.com/markkurossi/fedlr/dataset"
	"github.com/markkurossi/fedlr/env"
	"github.com/markkurossi/fedlr/metrics"
	"github.com/markkurossi/fedlr/participant"
	"github.com/markkurossi/fedlr/protocol"
	"github.com/markkurossi/fedlr/vector"
)

func main() {
	bits := flag.Int("bits", aggregator.DefaultKeyBits, "Paillier key size")
	numClients := flag.Int("clients", 3, "number of clients")
	rounds := flag.Int("rounds", protocol.DefaultRounds, "training rounds")
	eta := flag.Float64("eta", protocol.DefaultLearningRate, "learning rate")
	seed := flag.Uint64("seed", 0, "deterministic random seed")
	testSize := flag.Int("test", 50, "held-out test set size")
	csvFile := flag.String("csv", "", "read dataset from CSV `file`")
	target := flag.Int("target", -1, "CSV target column, -1 for last")
	header := flag.Bool("header", true, "CSV file has a header row")
	parallel := flag.Bool("p", false, "encrypt gradients in parallel")
	linkType := flag.String("link", "local", "fold link: local, pipe, tcp")
	timeout := flag.Duration("timeout", 0, "round timeout")
	retries := flag.Int("retries", 0, "failed round retries")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to `file`")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	log.SetFlags(0)

	if len(*cpuprofile) > 0 {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := &env.Config{
		Verbose: *verbose,
	}
	if *seed != 0 {
		var err error
		cfg, err = env.NewSeededConfig(*seed)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Verbose = *verbose
	}

	ds, err := loadDataset(cfg, *csvFile, *target, *header)
	if err != nil {
		log.Fatal(err)
	}
	parts, test, err := dataset.Partition(ds.AddIntercept(), *numClients,
		*testSize, cfg.MathRand())
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, cfg, parts, test, &params{
		bits:     *bits,
		rounds:   *rounds,
		eta:      *eta,
		parallel: *parallel,
		link:     *linkType,
		timeout:  *timeout,
		retries:  *retries,
	})
	if err != nil {
		log.Fatal(err)
	}
}

type params struct {
	bits     int
	rounds   int
	eta      float64
	parallel bool
	link     string
	timeout  time.Duration
	retries  int
}

func loadDataset(cfg *env.Config, file string, target int, header bool) (
	*dataset.Dataset, error) {

	if len(file) == 0 {
		return dataset.DefaultSynthetic.Generate(cfg.MathRand())
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadCSV(f, target, header)
}

func run(ctx context.Context, cfg *env.Config, parts []*dataset.Dataset,
	test *dataset.Dataset, p *params) error {

	report := metrics.NewReport("Test MSE", "Local", "Federated")

	start := time.Now()
	server, err := aggregator.NewServer(cfg, p.bits)
	if err != nil {
		return err
	}
	pub := server.PublicKey()
	fmt.Printf("Key: %v (%x), generated in %s\n", pub.Bits(),
		pub.Fingerprint()[:8], time.Since(start))

	// Local-only baselines.
	var local []float64
	for i, part := range parts {
		c, err := participant.New("Client", part, pub, participant.WithID(i))
		if err != nil {
			return err
		}
		if err := c.Fit(p.rounds, p.eta); err != nil {
			return err
		}
		mse, err := metrics.MeanSquaredError(c.Predict(test.X), test.Y)
		if err != nil {
			return err
		}
		local = append(local, mse)
	}

	var clients []*participant.Client
	var members []protocol.Participant
	for i, part := range parts {
		c, err := participant.New("Client", part, pub,
			participant.WithID(i),
			participant.WithRandom(cfg.GetRandom()),
			participant.WithVerbose(cfg.Verbose))
		if err != nil {
			return err
		}
		clients = append(clients, c)
		members = append(members, c)
	}

	link, stats, closer, err := newLink(p.link, pub, len(parts), cfg.Verbose)
	if err != nil {
		return err
	}
	defer closer()

	o, err := protocol.New(server, members, protocol.Config{
		Rounds:       p.rounds,
		LearningRate: p.eta,
		RoundTimeout: p.timeout,
		MaxRetries:   p.retries,
		Parallel:     p.parallel,
		Link:         link,
		Verbose:      cfg.Verbose,
		OnRound: func(round int, avg vector.Plain) {
			if !cfg.Verbose {
				return
			}
			mse, err := metrics.MeanSquaredError(clients[0].Predict(test.X),
				test.Y)
			if err == nil {
				log.Printf("round %d: MSE=%.4f\n", round, mse)
			}
		},
	})
	if err != nil {
		return err
	}
	result, err := o.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Federated training: %d rounds, %d retries\n",
		result.Rounds, result.Retries)

	for i, c := range clients {
		mse, err := metrics.MeanSquaredError(c.Predict(test.X), test.Y)
		if err != nil {
			return err
		}
		err = report.Add(c.Name()+c.IDString(), local[i], mse)
		if err != nil {
			return err
		}
	}
	report.Print(os.Stdout)
	result.Timing.Print(os.Stdout, stats())

	return nil
}
