package ingest

import (
	"encoding/binary"
	"fmt"
)

// oscMessage is the subset of an OSC 1.0 message this engine understands:
// an address pattern and a single Blob argument. Bundles and any other
// argument type are rejected (spec.md §7 "Ingest decode" kind: log and
// drop).
type oscMessage struct {
	Address string
	Blob    []byte
}

// parseOSCDatagram decodes one UDP datagram as an OSC message, per
// original_source/src/osc.rs::OSCHandler::handle_osc_packet, which expects
// exactly one Blob argument carrying the Scene payload. OSC strings and
// blobs are padded to a 4-byte boundary with NUL bytes.
func parseOSCDatagram(buf []byte) (*oscMessage, error) {
	if len(buf) > 0 && buf[0] == '#' {
		return nil, fmt.Errorf("ingest: OSC bundles are not supported")
	}

	address, rest, err := readOSCString(buf)
	if err != nil {
		return nil, fmt.Errorf("ingest: address pattern: %w", err)
	}

	tags, rest, err := readOSCString(rest)
	if err != nil {
		return nil, fmt.Errorf("ingest: type tag string: %w", err)
	}
	if len(tags) < 2 || tags[0] != ',' {
		return nil, fmt.Errorf("ingest: malformed type tag string %q", tags)
	}
	if tags[1] != 'b' {
		return nil, fmt.Errorf("ingest: expected first arg type 'b', got %q", tags[1])
	}

	blob, _, err := readOSCBlob(rest)
	if err != nil {
		return nil, fmt.Errorf("ingest: blob argument: %w", err)
	}

	return &oscMessage{Address: address, Blob: blob}, nil
}

func readOSCString(buf []byte) (string, []byte, error) {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	if n == len(buf) {
		return "", nil, fmt.Errorf("unterminated OSC string")
	}
	s := string(buf[:n])
	padded := (n + 1 + 3) &^ 3
	if padded > len(buf) {
		return "", nil, fmt.Errorf("OSC string padding exceeds datagram length")
	}
	return s, buf[padded:], nil
}

func readOSCBlob(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("blob length header truncated")
	}
	size := int(binary.BigEndian.Uint32(buf[:4]))
	if size < 0 || 4+size > len(buf) {
		return nil, nil, fmt.Errorf("blob length %d exceeds remaining datagram", size)
	}
	data := buf[4 : 4+size]
	padded := (size + 3) &^ 3
	end := 4 + padded
	if end > len(buf) {
		end = len(buf)
	}
	return data, buf[end:], nil
}
