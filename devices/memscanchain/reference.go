package memscanchain

// ReferenceDesign is a software model of a correct scan chain node. It can
// stand in for the design under test when no hardware simulator is attached.
type ReferenceDesign struct {
	localSize int
	memory    map[uint16]uint32
}

// NewReferenceDesign creates a node serving addresses below localSize.
func NewReferenceDesign(localSize int) *ReferenceDesign {
	return &ReferenceDesign{
		localSize: localSize,
		memory:    make(map[uint16]uint32),
	}
}

// Process handles one input item. It returns the item to emit and whether
// there is one.
func (d *ReferenceDesign) Process(in Request) (Request, bool) {
	if !in.Request || int(in.Addr) >= d.localSize {
		return in, true
	}

	if in.Write {
		d.memory[in.Addr] = in.Data
		return Request{}, false
	}

	return Request{Data: d.memory[in.Addr]}, true
}

// ProcessWords is Process on packed port words.
func (d *ReferenceDesign) ProcessWords(in []uint32) ([]uint32, bool) {
	out, emit := d.Process(UnpackRequest(in))
	if !emit {
		return nil, false
	}

	return out.Pack(), true
}
