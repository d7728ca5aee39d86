package ingest

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	rl "github.com/gen2brain/raylib-go/raylib"

	"auralis/internal/scene"
)

// Field numbers for the external Scene contract (spec.md §6.1). The wire
// schema itself is outside this engine's control; these numbers follow the
// field order the spec lists (room, listener, sources) and are not derived
// from any generated stub, since no .proto file accompanies the contract.
const (
	fieldRoom     = 1
	fieldListener = 2
	fieldSources  = 3

	fieldTransformPosition    = 1
	fieldTransformOrientation = 2

	fieldRoomWidth  = 1
	fieldRoomHeight = 2
	fieldRoomLength = 3

	fieldVec3X = 1
	fieldVec3Y = 2
	fieldVec3Z = 3

	fieldQuatX = 1
	fieldQuatY = 2
	fieldQuatZ = 3
	fieldQuatW = 4
)

// decodeScene parses a Scene protobuf message by hand with protowire,
// rather than protoc-generated stubs (no code generation can be run here).
// Malformed input is returned as an error, not a panic, so the caller can
// log-and-drop per spec.md §7.
func decodeScene(data []byte) (*scene.Snapshot, error) {
	snap := &scene.Snapshot{
		Listener: scene.Pose{Orientation: rl.QuaternionIdentity()},
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("scene: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldRoom:
			msg, m, err := consumeEmbedded(data, typ)
			if err != nil {
				return nil, fmt.Errorf("scene: room: %w", err)
			}
			data = data[m:]
			room, err := decodeRoom(msg)
			if err != nil {
				return nil, fmt.Errorf("scene: room: %w", err)
			}
			snap.Room = room

		case fieldListener:
			msg, m, err := consumeEmbedded(data, typ)
			if err != nil {
				return nil, fmt.Errorf("scene: listener: %w", err)
			}
			data = data[m:]
			pose, err := decodeTransform(msg)
			if err != nil {
				return nil, fmt.Errorf("scene: listener: %w", err)
			}
			snap.Listener = pose

		case fieldSources:
			msg, m, err := consumeEmbedded(data, typ)
			if err != nil {
				return nil, fmt.Errorf("scene: source: %w", err)
			}
			data = data[m:]
			pose, err := decodeTransform(msg)
			if err != nil {
				return nil, fmt.Errorf("scene: source: %w", err)
			}
			pose.Orientation = normalizedOrIdentity(pose.Orientation)
			snap.Sources = append(snap.Sources, pose)

		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("scene: skip unknown field %d: %w", num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	snap.Listener.Orientation = normalizedOrIdentity(snap.Listener.Orientation)
	return snap, nil
}

// normalizedOrIdentity guards against a zero quaternion (a sender that
// writes all four components as 0, which rl.QuaternionNormalize would turn
// into NaN). An omitted orientation or omitted components already start
// from identity in decodeTransform/decodeQuat.
func normalizedOrIdentity(q rl.Quaternion) rl.Quaternion {
	lenSq := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if lenSq < 1e-12 {
		return rl.QuaternionIdentity()
	}
	return rl.QuaternionNormalize(q)
}

func consumeEmbedded(data []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("expected length-delimited field, got wire type %d", typ)
	}
	msg, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return msg, n, nil
}

func decodeRoom(data []byte) (scene.Room, error) {
	var r scene.Room
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldRoomWidth:
			v, m, err := consumeFloat(data, typ)
			if err != nil {
				return r, err
			}
			data = data[m:]
			r.Width = v
		case fieldRoomHeight:
			v, m, err := consumeFloat(data, typ)
			if err != nil {
				return r, err
			}
			data = data[m:]
			r.Height = v
		case fieldRoomLength:
			v, m, err := consumeFloat(data, typ)
			if err != nil {
				return r, err
			}
			data = data[m:]
			r.Length = v
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return r, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return r, nil
}

func decodeTransform(data []byte) (scene.Pose, error) {
	p := scene.Pose{Orientation: rl.QuaternionIdentity()}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldTransformPosition:
			msg, m, err := consumeEmbedded(data, typ)
			if err != nil {
				return p, err
			}
			data = data[m:]
			v, err := decodeVec3(msg)
			if err != nil {
				return p, err
			}
			p.Position = v
		case fieldTransformOrientation:
			msg, m, err := consumeEmbedded(data, typ)
			if err != nil {
				return p, err
			}
			data = data[m:]
			q, err := decodeQuat(msg)
			if err != nil {
				return p, err
			}
			p.Orientation = q
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return p, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return p, nil
}

func decodeVec3(data []byte) (rl.Vector3, error) {
	var v rl.Vector3
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldVec3X:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return v, err
			}
			data = data[m:]
			v.X = f
		case fieldVec3Y:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return v, err
			}
			data = data[m:]
			v.Y = f
		case fieldVec3Z:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return v, err
			}
			data = data[m:]
			v.Z = f
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return v, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return v, nil
}

func decodeQuat(data []byte) (rl.Quaternion, error) {
	q := rl.QuaternionIdentity()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return q, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case fieldQuatX:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return q, err
			}
			data = data[m:]
			q.X = f
		case fieldQuatY:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return q, err
			}
			data = data[m:]
			q.Y = f
		case fieldQuatZ:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return q, err
			}
			data = data[m:]
			q.Z = f
		case fieldQuatW:
			f, m, err := consumeFloat(data, typ)
			if err != nil {
				return q, err
			}
			data = data[m:]
			q.W = f
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return q, protowire.ParseError(m)
			}
			data = data[m:]
		}
	}
	return q, nil
}

func consumeFloat(data []byte, typ protowire.Type) (float32, int, error) {
	if typ != protowire.Fixed32Type {
		return 0, 0, fmt.Errorf("expected fixed32 field, got wire type %d", typ)
	}
	bits, n := protowire.ConsumeFixed32(data)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return math.Float32frombits(bits), n, nil
}
