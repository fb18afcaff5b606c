package agent

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/achilleasa/mirage/desktop"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrFrameTooLarge = errors.New("agent: frame exceeds maximum size")
	ErrTruncated     = errors.New("agent: stream ended inside a frame")
	ErrUnknownOp     = errors.New("agent: unknown op kind")
)

// Upper bound for a single encoded op (256 MiB). Producers split larger
// updates into several ops covering disjoint tile sets.
const maxFrameSize = 1 << 28

// Op kinds.
type Kind uint8

const (
	KindPush Kind = iota + 1
	KindDestroy
)

func (k Kind) String() string {
	switch k {
	case KindPush:
		return "push"
	case KindDestroy:
		return "destroy"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Op is a single message sent by the producer. Each op is encoded with
// msgpack and framed with a 4 byte big-endian length prefix.
type Op struct {
	Kind   Kind     `msgpack:"k"`
	Window uint32   `msgpack:"w"`
	Width  uint32   `msgpack:"sw,omitempty"`
	Height uint32   `msgpack:"sh,omitempty"`
	TilesX uint32   `msgpack:"tx,omitempty"`
	TilesY uint32   `msgpack:"ty,omitempty"`
	Dirty  []uint64 `msgpack:"d,omitempty"`
	Pixels []byte   `msgpack:"p,omitempty"`
}

// PushOp wraps a tile update.
func PushOp(u desktop.TileUpdate) Op {
	return Op{
		Kind:   KindPush,
		Window: u.ID,
		Width:  u.Width,
		Height: u.Height,
		TilesX: u.TilesX,
		TilesY: u.TilesY,
		Dirty:  u.Dirty,
		Pixels: u.Pixels,
	}
}

// Update returns the tile update carried by a push op.
func (op *Op) Update() desktop.TileUpdate {
	return desktop.TileUpdate{
		ID:     op.Window,
		Width:  op.Width,
		Height: op.Height,
		TilesX: op.TilesX,
		TilesY: op.TilesY,
		Dirty:  op.Dirty,
		Pixels: op.Pixels,
	}
}

// Read the next frame from r. Returns io.EOF if r ends on a frame boundary.
func readFrame(r io.Reader, lenBuf []byte) ([]byte, error) {
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(lenBuf)
	if uint64(size) > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return data, nil
}

// Encoder writes framed ops. It is the producer side of the protocol.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Push encodes a tile update.
func (e *Encoder) Push(u desktop.TileUpdate) error {
	return e.Encode(PushOp(u))
}

// Destroy encodes a window removal.
func (e *Encoder) Destroy(id uint32) error {
	return e.Encode(Op{Kind: KindDestroy, Window: id})
}

// Encode writes a single op. The length prefix and payload are written
// with one call so concurrent encoders on a shared stream never interleave
// partial frames.
func (e *Encoder) Encode(op Op) error {
	data, err := msgpack.Marshal(&op)
	if err != nil {
		return fmt.Errorf("agent: could not encode %s op: %w", op.Kind, err)
	}
	if len(data) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	frame := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	frame = append(frame, data...)

	_, err = e.w.Write(frame)
	return err
}
