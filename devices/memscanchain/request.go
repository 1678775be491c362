package memscanchain

import (
	"fmt"

	"github.com/sarchlab/cosim/bitpack"
)

// RequestBits is the packed width of a Request.
const RequestBits = 1 + 16 + 1 + 32

// RequestWords is the number of port words a Request occupies.
var RequestWords = bitpack.WordsFor(RequestBits)

// A Request is one item travelling along the scan chain. When Request is
// false the item is a plain data word and only Data is meaningful.
type Request struct {
	Request bool
	Addr    uint16
	Write   bool
	Data    uint32
}

// Pack encodes the request into port words.
func (r Request) Pack() []uint32 {
	return bitpack.NewPacker(RequestBits).
		Bool(r.Request).
		Uint(uint64(r.Addr), 16).
		Bool(r.Write).
		Uint(uint64(r.Data), 32).
		Words()
}

// UnpackRequest decodes port words into a request.
func UnpackRequest(words []uint32) Request {
	u := bitpack.NewUnpacker(words, RequestBits)

	var r Request
	r.Request = u.Bool()
	r.Addr = uint16(u.Uint(16))
	r.Write = u.Bool()
	r.Data = uint32(u.Uint(32))

	return r
}

func (r Request) String() string {
	if !r.Request {
		return fmt.Sprintf("Data:    0x%08x", r.Data)
	}

	if r.Write {
		return fmt.Sprintf("Request: Write address 0x%04x data 0x%08x",
			r.Addr, r.Data)
	}

	return fmt.Sprintf("Request:  Read address 0x%04x", r.Addr)
}
