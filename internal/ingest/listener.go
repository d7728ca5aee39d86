// Package ingest implements the OSC-over-UDP control path: a listener
// goroutine that decodes each datagram's Scene payload and publishes it to
// a scene.Queue, per spec.md §6.1. Malformed datagrams are logged and
// dropped; the previous scene remains in effect (spec.md §7).
package ingest

import (
	"errors"
	"net"

	"github.com/charmbracelet/log"

	"auralis/internal/scene"
)

// Listener owns the UDP socket and publishes decoded snapshots to queue.
type Listener struct {
	conn   *net.UDPConn
	queue  *scene.Queue
	logger *log.Logger
	buf    [2048]byte
}

// Listen binds addr (e.g. "127.0.0.1:7001") and returns a Listener ready
// for Run. Bind failure is a startup-fatal condition (spec.md §7 "Device"/
// config kind), left for the caller to report and exit on.
func Listen(addr string, queue *scene.Queue, logger *log.Logger) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Listener{conn: conn, queue: queue, logger: logger}, nil
}

// Close releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Run reads datagrams until the socket is closed or stop is signaled,
// decoding each as OSC-wrapped Scene and publishing it. Never blocks the
// render path: each iteration is independent and errors only drop one
// datagram.
func (l *Listener) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, _, err := l.conn.ReadFromUDP(l.buf[:])
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("ingest: datagram read failed", "err", err)
			continue
		}

		msg, err := parseOSCDatagram(l.buf[:n])
		if err != nil {
			l.logger.Warn("ingest: dropping malformed OSC datagram", "err", err)
			continue
		}

		snap, err := decodeScene(msg.Blob)
		if err != nil {
			l.logger.Warn("ingest: dropping malformed scene payload", "err", err)
			continue
		}

		l.queue.Publish(snap)
	}
}
