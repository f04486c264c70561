//
// Copyright (c) 2020-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

const (
	// DefaultRetryDelay is the default delay between connection
	// attempts.
	DefaultRetryDelay = 100 * time.Millisecond

	pollInterval = 5 * time.Millisecond
)

// Network implements peer-to-peer network.
type Network struct {
	ID         int
	Verbose    bool
	RetryDelay time.Duration
	m          sync.Mutex
	Peers      map[int]*Peer
	listener   net.Listener
}

// NewNetwork creats a new peer-to-peer network.
func NewNetwork(addr string, id int) (*Network, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nw := &Network{
		ID:         id,
		RetryDelay: DefaultRetryDelay,
		Peers:      make(map[int]*Peer),
		listener:   listener,
	}
	go nw.acceptLoop()
	return nw, nil
}

// Addr returns the network listener address.
func (nw *Network) Addr() string {
	return nw.listener.Addr().String()
}

// Close closes the network and all peer connections.
func (nw *Network) Close() error {
	err := nw.listener.Close()

	nw.m.Lock()
	peers := nw.Peers
	nw.Peers = make(map[int]*Peer)
	nw.m.Unlock()

	for _, peer := range peers {
		peer.Close()
	}
	return err
}

func (nw *Network) debugf(format string, a ...interface{}) {
	if nw.Verbose {
		log.Printf("NW %d: %s", nw.ID, fmt.Sprintf(format, a...))
	}
}

// AddPeer connects to the peer id at addr. Failed connection attempts
// are retried until the connection succeeds or ctx is done.
func (nw *Network) AddPeer(ctx context.Context, addr string, id int) error {
	var dialer net.Dialer
	for {
		// Check if we have already accepted peer `id`.
		if _, ok := nw.Peer(id); ok {
			return nil
		}

		nw.debugf("connecting to peer %d...", id)
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			nw.debugf("connect to %s failed, retrying in %s", addr,
				nw.RetryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(nw.RetryDelay):
			}
			continue
		}
		nw.debugf("connected to %s", addr)
		conn := NewConn(nc)

		if err := conn.SendInt32(nw.ID); err != nil {
			conn.Close()
			return err
		}
		if err := conn.Flush(); err != nil {
			conn.Close()
			return err
		}
		if err := nw.newPeer(true, conn, id); err != nil {
			return err
		}
	}
}

// Peer returns the peer id.
func (nw *Network) Peer(id int) (*Peer, bool) {
	nw.m.Lock()
	defer nw.m.Unlock()
	peer, ok := nw.Peers[id]
	return peer, ok
}

// WaitPeer waits until the peer id has connected to the network.
func (nw *Network) WaitPeer(ctx context.Context, id int) (*Peer, error) {
	for {
		if peer, ok := nw.Peer(id); ok {
			return peer, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// RemovePeer closes and removes the peer id from the network.
func (nw *Network) RemovePeer(id int) {
	nw.m.Lock()
	peer, ok := nw.Peers[id]
	delete(nw.Peers, id)
	nw.m.Unlock()

	if ok {
		nw.debugf("removing peer %d", id)
		peer.conn.Abort()
		peer.Close()
	}
}

// Stats returns the I/O stats from the network.
func (nw *Network) Stats() IOStats {
	nw.m.Lock()
	defer nw.m.Unlock()

	result := NewIOStats()
	for _, peer := range nw.Peers {
		result = result.Add(peer.conn.Stats)
	}
	return result
}

func (nw *Network) acceptLoop() {
	for {
		nc, err := nw.listener.Accept()
		if err != nil {
			nw.debugf("accept failed: %s", err)
			return
		}
		conn := NewConn(nc)

		// Read peer ID.
		id, err := conn.ReceiveInt32()
		if err != nil {
			nw.debugf("I/O error: %s", err)
			conn.Close()
			continue
		}

		err = nw.newPeer(false, conn, id)
		if err != nil {
			log.Printf("NW %d: inbound connection error: %s\n", nw.ID, err)
		}
	}
}

func (nw *Network) newPeer(client bool, conn *Conn, id int) error {
	nw.m.Lock()
	_, ok := nw.Peers[id]
	if ok {
		nw.m.Unlock()
		nw.debugf("peer %d already connected", id)
		return conn.Close()
	}
	nw.Peers[id] = &Peer{
		id:     id,
		conn:   conn,
		client: client,
	}
	nw.m.Unlock()

	nw.debugf("peer %d connected", id)
	return nil
}

// Peer implements a peer in the peer-to-peer network.
type Peer struct {
	id     int
	conn   *Conn
	client bool
}

// ID returns the peer ID.
func (peer *Peer) ID() int {
	return peer.id
}

// Conn returns the peer connection.
func (peer *Peer) Conn() *Conn {
	return peer.conn
}

// Close closes the peer connection.
func (peer *Peer) Close() error {
	return peer.conn.Close()
}
