package radar

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/maze-team-client/internal/compass"
)

// Alphabet is the server's Base64 variant: lowercase letters come first.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+/"

// ViewBytes is the decoded size of every radar view.
const ViewBytes = 11

var encoding = base64.NewEncoding(Alphabet).WithPadding(base64.NoPadding)

var (
	ErrInvalidCharacter = errors.New("invalid character")
	ErrInvalidLength    = errors.New("invalid length")
)

// DecodeError describes why an encoded radar view was rejected.
type DecodeError struct {
	Input  string
	Offset int // position of the bad character, -1 for length errors
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("radar: %v at offset %d in %q", e.Err, e.Offset, e.Input)
	}
	return fmt.Sprintf("radar: %v in %q", e.Err, e.Input)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type WallCode uint8

const (
	WallUnknown WallCode = iota
	WallOpen
	WallClosed
)

type Entity uint8

const (
	NoEntity Entity = iota
	AllyEntity
	EnemyEntity
	MonsterEntity
)

// Cell is the content of one radar cell. Known is false for "no data".
type Cell struct {
	Known  bool
	Hint   bool
	Goal   bool
	Entity Entity
}

// View holds the three bit fields of a radar snapshot, row-major and
// unrotated (the player faces up).
type View struct {
	Horizontal [4][3]WallCode
	Vertical   [3][4]WallCode
	Cells      [3][3]Cell
}

const noData = 0b1111

func wallFromBits(bits uint32) WallCode {
	switch bits & 0b11 {
	case 0b01:
		return WallOpen
	case 0b10:
		return WallClosed
	default:
		return WallUnknown
	}
}

func (w WallCode) bits() uint32 {
	switch w {
	case WallOpen:
		return 0b01
	case WallClosed:
		return 0b10
	default:
		return 0b00
	}
}

func cellFromNibble(n uint64) Cell {
	n &= 0xF
	if n == noData {
		return Cell{}
	}
	nature := n >> 2
	return Cell{
		Known:  true,
		Hint:   nature&0b01 != 0,
		Goal:   nature&0b10 != 0,
		Entity: Entity(n & 0b11),
	}
}

func (c Cell) nibble() uint64 {
	if !c.Known {
		return noData
	}
	var nature uint64
	if c.Hint {
		nature |= 0b01
	}
	if c.Goal {
		nature |= 0b10
	}
	return nature<<2 | uint64(c.Entity&0b11)
}

// DecodeBytes undoes the custom Base64 layer. A '=' ends the input.
func DecodeBytes(encoded string) ([]byte, error) {
	if i := strings.IndexByte(encoded, '='); i >= 0 {
		encoded = encoded[:i]
	}
	for i := 0; i < len(encoded); i++ {
		if strings.IndexByte(Alphabet, encoded[i]) < 0 {
			return nil, &DecodeError{Input: encoded, Offset: i, Err: ErrInvalidCharacter}
		}
	}
	if len(encoded)%4 == 1 {
		return nil, &DecodeError{Input: encoded, Offset: -1, Err: ErrInvalidLength}
	}
	raw, err := encoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodeError{Input: encoded, Offset: -1, Err: fmt.Errorf("%w: %v", ErrInvalidLength, err)}
	}
	return raw, nil
}

// ParseView splits the 11 decoded bytes into the wall and cell fields.
func ParseView(raw []byte) (View, error) {
	var v View
	if len(raw) != ViewBytes {
		return v, fmt.Errorf("radar: %w: got %d bytes, want %d", ErrInvalidLength, len(raw), ViewBytes)
	}

	h := wallBlock(raw[0:3])
	for i := 0; i < 12; i++ {
		v.Horizontal[i/3][i%3] = wallFromBits(h >> (22 - 2*i))
	}
	vert := wallBlock(raw[3:6])
	for i := 0; i < 12; i++ {
		v.Vertical[i/4][i%4] = wallFromBits(vert >> (22 - 2*i))
	}

	var cells uint64
	for _, b := range raw[6:11] {
		cells = cells<<8 | uint64(b)
	}
	for i := 0; i < 9; i++ {
		v.Cells[i/3][i%3] = cellFromNibble(cells >> (36 - 4*i))
	}
	return v, nil
}

// wall blocks are little-endian: the last byte holds the first codes.
func wallBlock(b []byte) uint32 {
	return uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

// Encode is the inverse of ParseView followed by DecodeBytes.
func Encode(v View) string {
	var h, vert uint32
	for i := 0; i < 12; i++ {
		h |= v.Horizontal[i/3][i%3].bits() << (22 - 2*i)
		vert |= v.Vertical[i/4][i%4].bits() << (22 - 2*i)
	}
	var cells uint64
	for i := 0; i < 9; i++ {
		cells |= v.Cells[i/3][i%3].nibble() << (36 - 4*i)
	}

	raw := []byte{
		byte(h), byte(h >> 8), byte(h >> 16),
		byte(vert), byte(vert >> 8), byte(vert >> 16),
		byte(cells >> 32), byte(cells >> 24), byte(cells >> 16), byte(cells >> 8), byte(cells),
	}
	return encoding.EncodeToString(raw)
}

// Decode turns an encoded radar view into a 7×7 glyph grid aligned so that
// North is up, given the heading the player had when the view was taken.
func Decode(encoded string, heading compass.Cardinal) (Grid, error) {
	raw, err := DecodeBytes(encoded)
	if err != nil {
		return nil, err
	}
	v, err := ParseView(raw)
	if err != nil {
		return nil, &DecodeError{Input: encoded, Offset: -1, Err: err}
	}
	return Rotate(v.Render(), quarterTurns(heading)), nil
}

func quarterTurns(heading compass.Cardinal) int {
	switch heading {
	case compass.East:
		return 3
	case compass.South:
		return 2
	case compass.West:
		return 1
	default:
		return 0
	}
}
