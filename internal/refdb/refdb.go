// Package refdb decodes the compact binary reference-character database
// consumed by the matcher (spec section 6.2). Loading happens once per
// process; a corrupt or truncated file is a fatal condition for the engine.
package refdb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SubStrokeTriple is the reference-DB-side byte-packed sub-stroke: a
// direction byte, a length byte, and a center byte whose high nibble is
// center_x and low nibble is center_y, both in [0,15].
type SubStrokeTriple struct {
	Dir    uint8
	Length uint8
	Center uint8
}

// CenterX returns the high nibble of Center, in [0,15].
func (t SubStrokeTriple) CenterX() uint8 { return t.Center >> 4 }

// CenterY returns the low nibble of Center, in [0,15].
func (t SubStrokeTriple) CenterY() uint8 { return t.Center & 0x0F }

// ReferenceChar is one known character's canonical sub-stroke sequence.
type ReferenceChar struct {
	Hanzi       rune
	StrokeCount uint16
	SubStrokes  []SubStrokeTriple
}

// Decode reads the length-prefixed little-endian layout described in
// spec section 6.2: a record count, then per record the hanzi scalar, the
// stroke count, a sub-stroke count, and that many 3-byte sub-stroke
// triples. Any I/O or structural error is returned; the caller treats this
// as fatal, per spec section 7.
func Decode(r io.Reader) ([]ReferenceChar, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("refdb: read record count: %w", err)
	}

	chars := make([]ReferenceChar, count)
	for i := range chars {
		var hanzi uint32
		if err := binary.Read(r, binary.LittleEndian, &hanzi); err != nil {
			return nil, fmt.Errorf("refdb: read hanzi for record %d: %w", i, err)
		}
		var strokeCount uint16
		if err := binary.Read(r, binary.LittleEndian, &strokeCount); err != nil {
			return nil, fmt.Errorf("refdb: read stroke count for record %d: %w", i, err)
		}
		var subCount uint32
		if err := binary.Read(r, binary.LittleEndian, &subCount); err != nil {
			return nil, fmt.Errorf("refdb: read sub-stroke count for record %d: %w", i, err)
		}

		subs := make([]SubStrokeTriple, subCount)
		raw := make([]byte, 3)
		for j := range subs {
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("refdb: read sub-stroke %d of record %d: %w", j, i, err)
			}
			subs[j] = SubStrokeTriple{Dir: raw[0], Length: raw[1], Center: raw[2]}
		}

		chars[i] = ReferenceChar{
			Hanzi:       rune(hanzi),
			StrokeCount: strokeCount,
			SubStrokes:  subs,
		}
	}
	return chars, nil
}
