package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	cserrors "cryptosocket/internal/errors"
)

// HeaderSize is the length of the frame prefix.
const HeaderSize = 4

// WriteFrame writes payload as a single frame with one Write call so that
// concurrent writers serialised by the caller never interleave partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d-byte payload", cserrors.ErrFrame, len(payload))
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: write frame: %w", cserrors.ErrIO, err)
	}
	return nil
}

// ReadFrame reads one frame whose body is at most limit bytes.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: truncated length prefix", cserrors.ErrFrame)
		default:
			return nil, fmt.Errorf("%w: read frame header: %w", cserrors.ErrIO, err)
		}
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if limit < 0 || uint64(n) > uint64(limit) {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit %d", cserrors.ErrFrame, n, limit)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated body, want %d bytes", cserrors.ErrFrame, n)
		}
		return nil, fmt.Errorf("%w: read frame body: %w", cserrors.ErrIO, err)
	}
	return body, nil
}
