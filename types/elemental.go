package types

import (
	"fmt"
	"math"
)

/*
ElementID is a stable handle to a slot in the element arena. It packs the slot
index (stored plus one, so the zero value means "no element") into the low 32
bits and the slot's generation into the high 32 bits. A slot is recycled when its
element is removed; the generation changes on every reuse, so a handle kept past
its element's removal never resolves to the slot's next occupant.
*/
type ElementID uint64

const NoElement ElementID = 0

func NewElementID(index int, generation uint32) (id ElementID) {
	var (
		limit = math.MaxUint32 - 1
	)
	if index < 0 || index > limit {
		panic(fmt.Errorf("unable to pack slot index %d into an element id", index))
	}
	id = ElementID(uint64(index+1) + uint64(generation)<<32)
	return
}

func (id ElementID) Index() int {
	return int(uint32(id)) - 1
}

func (id ElementID) Generation() uint32 {
	return uint32(id >> 32)
}

func (id ElementID) String() string {
	if id == NoElement {
		return "E[none]"
	}
	return fmt.Sprintf("E[%d.%d]", id.Index(), id.Generation())
}
