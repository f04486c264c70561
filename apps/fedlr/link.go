//
// link.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"fmt"

	"github.com/markkurossi/fedlr/p2p"
	"github.com/markkurossi/fedlr/paillier"
	"github.com/markkurossi/fedlr/protocol"
)

// newLink creates the fold link for numClients clients. It returns
// the link, a function returning the link I/O statistics, and a
// function that releases the link resources.
func newLink(kind string, pub *paillier.PublicKey, numClients int,
	verbose bool) (protocol.Link, func() p2p.IOStats, func(), error) {

	switch kind {
	case "local":
		stats := func() p2p.IOStats {
			return p2p.IOStats{}
		}
		return nil, stats, func() {}, nil

	case "pipe":
		link := p2p.NewPipeLink(pub)
		return link, link.Stats, func() {
			link.Close()
		}, nil

	case "tcp":
		nws := make(map[int]*p2p.Network)
		closeAll := func() {
			for _, nw := range nws {
				nw.Close()
			}
		}
		for id := protocol.AggregatorID; id < numClients; id++ {
			nw, err := p2p.NewNetwork("127.0.0.1:0", id)
			if err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			nw.Verbose = verbose
			nws[id] = nw
		}
		stats := func() p2p.IOStats {
			result := p2p.NewIOStats()
			for _, nw := range nws {
				result = result.Add(nw.Stats())
			}
			return result
		}
		return p2p.NewNetLink(pub, nws), stats, closeAll, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown link type: %s", kind)
	}
}
