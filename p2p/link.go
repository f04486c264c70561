//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/markkurossi/fedlr/paillier"
	"github.com/markkurossi/fedlr/vector"
)

// Pipe implements the Conn interface as a bidirectional communication
// pipe. Anything send to the first endpoint can be received from the
// second and vice versa.
func Pipe() (*Conn, *Conn) {
	var p0, p1 pipe

	p0.r, p1.w = io.Pipe()
	p1.r, p0.w = io.Pipe()

	return NewConn(&p0), NewConn(&p1)
}

type pipe struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipe) Close() error {
	if err := p.r.Close(); err != nil {
		return err
	}
	return p.w.Close()
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.Read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.Write(data)
}

// PipeLink moves encrypted vectors between parties over an in-memory
// pipe. Every hop serializes the vector with the wire codec and the
// receiving party gets ciphertexts bound to its copy of the public
// key.
type PipeLink struct {
	pub   *paillier.PublicKey
	m     sync.Mutex
	out   *Conn
	in    *Conn
	stats IOStats
}

// NewPipeLink creates a new pipe link for vectors of the public key
// pub.
func NewPipeLink(pub *paillier.PublicKey) *PipeLink {
	link := &PipeLink{
		pub:   pub,
		stats: NewIOStats(),
	}
	link.out, link.in = Pipe()
	return link
}

// Forward implements the fold hop from party from to party to.
func (link *PipeLink) Forward(ctx context.Context, from, to int,
	v vector.Encrypted) (vector.Encrypted, error) {

	link.m.Lock()
	defer link.m.Unlock()

	out, in := link.out, link.in
	sent := out.Stats.Sent.Load()
	recvd := in.Stats.Recvd.Load()
	flushed := out.Stats.Flushed.Load()

	result, err := transfer(ctx, out, in, link.pub, v)

	link.stats.Sent.Add(out.Stats.Sent.Load() - sent)
	link.stats.Recvd.Add(in.Stats.Recvd.Load() - recvd)
	link.stats.Flushed.Add(out.Stats.Flushed.Load() - flushed)
	if err != nil {
		// The pipe state is undefined after a failed transfer.
		link.out.Close()
		link.in.Close()
		link.out, link.in = Pipe()
		return nil, fmt.Errorf("p2p: hop %d->%d: %w", from, to, err)
	}
	return result, nil
}

// Stats returns the link I/O statistics.
func (link *PipeLink) Stats() IOStats {
	return link.stats
}

// Close closes the link.
func (link *PipeLink) Close() error {
	link.m.Lock()
	defer link.m.Unlock()

	err := link.out.Close()
	if err2 := link.in.Close(); err == nil {
		err = err2
	}
	return err
}

// NetLink moves encrypted vectors between parties over the TCP
// networks of the parties. Connections are established on demand and
// broken connections are dropped so that the next hop reconnects.
type NetLink struct {
	pub *paillier.PublicKey
	nws map[int]*Network
}

// NewNetLink creates a new network link between the party networks.
func NewNetLink(pub *paillier.PublicKey, nws map[int]*Network) *NetLink {
	return &NetLink{
		pub: pub,
		nws: nws,
	}
}

// Forward implements the fold hop from party from to party to.
func (link *NetLink) Forward(ctx context.Context, from, to int,
	v vector.Encrypted) (vector.Encrypted, error) {

	src, ok := link.nws[from]
	if !ok {
		return nil, fmt.Errorf("p2p: unknown party %d", from)
	}
	dst, ok := link.nws[to]
	if !ok {
		return nil, fmt.Errorf("p2p: unknown party %d", to)
	}
	out, ok := src.Peer(to)
	if !ok {
		if err := src.AddPeer(ctx, dst.Addr(), to); err != nil {
			return nil, err
		}
		out, _ = src.Peer(to)
	}
	in, err := dst.WaitPeer(ctx, from)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		out.conn.SetDeadline(deadline)
		in.conn.SetDeadline(deadline)
		defer func() {
			out.conn.SetDeadline(time.Time{})
			in.conn.SetDeadline(time.Time{})
		}()
	}

	result, err := transfer(ctx, out.conn, in.conn, link.pub, v)
	if err != nil {
		src.RemovePeer(to)
		dst.RemovePeer(from)
		return nil, fmt.Errorf("p2p: hop %d->%d: %w", from, to, err)
	}
	return result, nil
}

type received struct {
	v   vector.Encrypted
	err error
}

// transfer sends v from out and receives it from in. If the transfer
// fails or ctx is done, both connections are aborted.
func transfer(ctx context.Context, out, in *Conn, pub *paillier.PublicKey,
	v vector.Encrypted) (vector.Encrypted, error) {

	sendC := make(chan error, 1)
	go func() {
		err := out.SendVector(v)
		if err == nil {
			err = out.Flush()
		}
		sendC <- err
	}()
	recvC := make(chan received, 1)
	go func() {
		v, err := in.ReceiveVector(pub)
		recvC <- received{
			v:   v,
			err: err,
		}
	}()

	var sendDone, recvDone bool
	var result received

	abort := func(err error) (vector.Encrypted, error) {
		out.Abort()
		in.Abort()
		if !sendDone {
			<-sendC
		}
		if !recvDone {
			<-recvC
		}
		return nil, err
	}

	for !sendDone || !recvDone {
		select {
		case err := <-sendC:
			sendDone = true
			if err != nil {
				return abort(err)
			}
		case result = <-recvC:
			recvDone = true
			if result.err != nil {
				return abort(result.err)
			}
		case <-ctx.Done():
			return abort(ctx.Err())
		}
	}
	return result.v, nil
}
