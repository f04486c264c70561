//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"errors"
	"fmt"
	"testing"
)

var tests = []interface{}{
	byte(42),
	uint16(43),
	uint32(44),
	int32(-45),
	"Hello, world!",
	make([]byte, 1024),
	make([]byte, 2*1024*1024),
	make([]byte, 5*1024*1024),
}

func writer(c *Conn) {
	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			if err := c.SendByte(d); err != nil {
				fmt.Printf("SendByte: %v\n", err)
			}

		case uint16:
			if err := c.SendUint16(int(d)); err != nil {
				fmt.Printf("SendUint16: %v\n", err)
			}

		case uint32:
			if err := c.SendUint32(int(d)); err != nil {
				fmt.Printf("SendUint32: %v\n", err)
			}

		case int32:
			if err := c.SendInt32(int(d)); err != nil {
				fmt.Printf("SendInt32: %v\n", err)
			}

		case string:
			if err := c.SendString(d); err != nil {
				fmt.Printf("SendString: %v\n", err)
			}

		case []byte:
			for i := range d {
				d[i] = byte(i)
			}
			if err := c.SendData(d); err != nil {
				fmt.Printf("SendData [%v]byte: %v\n", len(d), err)
			}

		default:
			fmt.Printf("writer: invalid data: %v(%T)\n", test, test)
		}
	}
	if err := c.Flush(); err != nil {
		fmt.Printf("Flush: %v\n", err)
	}
}

func TestProtocol(t *testing.T) {
	cw, c := Pipe()

	go writer(cw)

	for _, test := range tests {
		switch d := test.(type) {
		case byte:
			v, err := c.ReceiveByte()
			if err != nil {
				t.Fatalf("ReceiveByte: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveByte: got %v, expected %v", v, d)
			}

		case uint16:
			v, err := c.ReceiveUint16()
			if err != nil {
				t.Fatalf("ReceiveUint16: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint16: got %v, expected %v", v, d)
			}

		case uint32:
			v, err := c.ReceiveUint32()
			if err != nil {
				t.Fatalf("ReceiveUint32: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveUint32: got %v, expected %v", v, d)
			}

		case int32:
			v, err := c.ReceiveInt32()
			if err != nil {
				t.Fatalf("ReceiveInt32: %v", err)
			}
			if v != int(d) {
				t.Errorf("ReceiveInt32: got %v, expected %v", v, d)
			}

		case string:
			v, err := c.ReceiveString()
			if err != nil {
				t.Fatalf("ReceiveString: %v", err)
			}
			if v != d {
				t.Errorf("ReceiveString: got %v, expected %v", v, d)
			}

		case []byte:
			v, err := c.ReceiveData()
			if err != nil {
				t.Fatalf("ReceiveData: %v", err)
			}
			if len(v) != len(d) {
				t.Fatalf("ReceiveData: got [%v]byte, expected [%v]byte",
					len(v), len(d))
			}
			for i := range v {
				if v[i] != byte(i) {
					t.Fatalf("ReceiveData: byte %d: got %v, expected %v",
						i, v[i], byte(i))
				}
			}

		default:
			t.Errorf("invalid value: %v(%T)", test, test)
		}
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestClosed(t *testing.T) {
	c0, c1 := Pipe()
	defer c1.Close()

	if err := c0.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c0.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close: got %v, expected ErrClosed", err)
	}
	if err := c0.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Close after Close: got %v, expected ErrClosed", err)
	}
	if _, err := c1.ReceiveByte(); err == nil {
		t.Errorf("ReceiveByte from closed pipe succeeded")
	}
}

func TestAbort(t *testing.T) {
	c0, c1 := Pipe()
	defer c0.Close()
	defer c1.Close()

	done := make(chan error)
	go func() {
		_, err := c1.ReceiveData()
		done <- err
	}()
	c1.Abort()
	if err := <-done; err == nil {
		t.Errorf("ReceiveData succeeded after Abort")
	}
}

var errBrokenWrite = errors.New("broken write")

type brokenConn struct{}

func (brokenConn) Read(data []byte) (int, error) {
	return 0, errors.New("broken read")
}

func (brokenConn) Write(data []byte) (int, error) {
	return 0, errBrokenWrite
}

func TestWriteError(t *testing.T) {
	c := NewConn(brokenConn{})

	// Flushes are pipelined over the spare buffers so the error is
	// seen at the latest once a written buffer comes back.
	var err error
	for i := 0; i <= numBuffers && err == nil; i++ {
		if err = c.SendByte(byte(i)); err != nil {
			break
		}
		err = c.Flush()
	}
	if !errors.Is(err, errBrokenWrite) {
		t.Errorf("Flush: got %v, expected %v", err, errBrokenWrite)
	}
	if err := c.Flush(); !errors.Is(err, errBrokenWrite) {
		t.Errorf("Flush after error: got %v, expected %v", err,
			errBrokenWrite)
	}
	if err := c.Close(); !errors.Is(err, errBrokenWrite) {
		t.Errorf("Close: got %v, expected %v", err, errBrokenWrite)
	}
}

func TestWriteErrorAbort(t *testing.T) {
	c0, c1 := Pipe()
	defer c1.Close()

	// The writer goroutine fails while the sender keeps flushing.
	done := make(chan error)
	go func() {
		var err error
		for err == nil {
			if err = c0.SendData(make([]byte, writeBufSize)); err == nil {
				err = c0.Flush()
			}
		}
		done <- err
	}()
	if _, err := c1.ReceiveData(); err != nil {
		t.Fatalf("ReceiveData: %v", err)
	}
	c1.Abort()
	if err := <-done; err == nil {
		t.Errorf("sender succeeded after peer Abort")
	}
	c0.Close()
}
