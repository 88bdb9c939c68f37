package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/dustin/go-humanize"
)

// DefaultMaxFrameSize bounds a single payload; the server never sends more
// than a few hundred bytes.
const DefaultMaxFrameSize = 1 << 20

var (
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownMessage   = errors.New("unknown message")
)

// IsProtocolError reports whether err came from a well-framed payload the
// client could not interpret. The stream stays aligned after such errors.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMalformedMessage) || errors.Is(err, ErrUnknownMessage)
}

// WriteMessage frames msg as a little-endian u32 length followed by its JSON.
func WriteMessage(w io.Writer, msg types.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("wire: marshal %s: %w", msg.Kind(), err)
	}
	if uint64(len(payload)) > 0xFFFFFFFF {
		return fmt.Errorf("wire: %w: %s", ErrFrameTooLarge, humanize.Bytes(uint64(len(payload))))
	}

	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("wire: write: %w", err)
	}
	return nil
}

// ReadMessage reads one frame. Payloads above maxSize are refused before
// allocation; maxSize <= 0 means DefaultMaxFrameSize.
func ReadMessage(r io.Reader, maxSize int) (types.Message, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return types.Message{}, fmt.Errorf("wire: read header: %w", err)
	}
	size := binary.LittleEndian.Uint32(header[:])
	if uint64(size) > uint64(maxSize) {
		return types.Message{}, fmt.Errorf("wire: %w: %s exceeds %s",
			ErrFrameTooLarge, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(maxSize)))
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return types.Message{}, fmt.Errorf("wire: read payload: %w", err)
	}

	var msg types.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return types.Message{}, fmt.Errorf("wire: %w: %v", ErrMalformedMessage, err)
	}
	if msg.Kind() == "" {
		return types.Message{}, fmt.Errorf("wire: %w: %s", ErrUnknownMessage, payload)
	}
	return msg, nil
}
