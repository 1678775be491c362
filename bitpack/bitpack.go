// Package bitpack packs typed fields into the 32-bit word arrays exchanged
// through ports, using the same layout as a packed hardware struct: the first
// field occupies the most significant bits and word 0 holds bits 0 to 31.
package bitpack

import "fmt"

// WordsFor returns how many 32-bit words hold the given number of bits.
func WordsFor(bits int) int {
	return (bits + 31) / 32
}

// A Packer writes fields from the most significant bit downwards.
type Packer struct {
	words []uint32
	pos   int
}

// NewPacker creates a packer for a value of the given total bit width.
func NewPacker(bits int) *Packer {
	return &Packer{
		words: make([]uint32, WordsFor(bits)),
		pos:   bits,
	}
}

// Uint appends the low width bits of v.
func (p *Packer) Uint(v uint64, width int) *Packer {
	if width < 0 || width > 64 || width > p.pos {
		panic(fmt.Sprintf("bitpack: cannot pack %d bits, %d left", width, p.pos))
	}

	p.pos -= width
	for i := 0; i < width; i++ {
		if v&(1<<uint(i)) == 0 {
			continue
		}

		bit := p.pos + i
		p.words[bit/32] |= 1 << uint(bit%32)
	}

	return p
}

// Bool appends a single bit.
func (p *Packer) Bool(b bool) *Packer {
	var v uint64
	if b {
		v = 1
	}

	return p.Uint(v, 1)
}

// Words returns the packed words. All bits must have been written.
func (p *Packer) Words() []uint32 {
	if p.pos != 0 {
		panic(fmt.Sprintf("bitpack: %d bits were not packed", p.pos))
	}

	return p.words
}

// An Unpacker reads fields from the most significant bit downwards.
type Unpacker struct {
	words []uint32
	pos   int
}

// NewUnpacker reads a value of the given total bit width from words.
func NewUnpacker(words []uint32, bits int) *Unpacker {
	if len(words) < WordsFor(bits) {
		panic(fmt.Sprintf("bitpack: %d words cannot hold %d bits",
			len(words), bits))
	}

	return &Unpacker{words: words, pos: bits}
}

// Uint reads the next width bits.
func (u *Unpacker) Uint(width int) uint64 {
	if width < 0 || width > 64 || width > u.pos {
		panic(fmt.Sprintf("bitpack: cannot unpack %d bits, %d left",
			width, u.pos))
	}

	u.pos -= width

	var v uint64
	for i := 0; i < width; i++ {
		bit := u.pos + i
		if u.words[bit/32]&(1<<uint(bit%32)) != 0 {
			v |= 1 << uint(i)
		}
	}

	return v
}

// Bool reads a single bit.
func (u *Unpacker) Bool() bool {
	return u.Uint(1) == 1
}

// Remaining returns how many bits are left to read.
func (u *Unpacker) Remaining() int {
	return u.pos
}
