package serialization

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// MaxFrameSize bounds the payload of one frame.
const MaxFrameSize = 16 << 20

// frameHeader is PortID (4 bytes), Seq (8 bytes) and the xxhash64 of the
// payload (8 bytes), big endian.
const frameHeader = 20

// Frame is one value on the wire, addressed by numeric port id.
type Frame struct {
	PortID  uint32
	Seq     uint64
	Payload []byte
}

// WriteFrame writes f as a 4-byte length followed by header and payload.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(f.Payload))
	}
	buf := make([]byte, 4+frameHeader+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(frameHeader+len(f.Payload)))
	binary.BigEndian.PutUint32(buf[4:8], f.PortID)
	binary.BigEndian.PutUint64(buf[8:16], f.Seq)
	binary.BigEndian.PutUint64(buf[16:24], xxhash.Sum64(f.Payload))
	copy(buf[24:], f.Payload)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame written by WriteFrame. It returns io.EOF when r
// ends cleanly between frames and ErrChecksum when the payload was damaged.
func ReadFrame(r io.Reader) (Frame, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(size[:])
	if n < frameHeader {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, n)
	}
	if n-frameHeader > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n-frameHeader)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	f := Frame{
		PortID:  binary.BigEndian.Uint32(body[0:4]),
		Seq:     binary.BigEndian.Uint64(body[4:12]),
		Payload: body[frameHeader:],
	}
	if sum := binary.BigEndian.Uint64(body[12:20]); sum != xxhash.Sum64(f.Payload) {
		return Frame{}, fmt.Errorf("%w: frame %d", ErrChecksum, f.Seq)
	}
	return f, nil
}
