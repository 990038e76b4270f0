package imgdesc

import (
	"errors"
	"fmt"
)

// Errors reported when validating a table.
var (
	ErrEmptyTable  = errors.New("descriptor table is empty")
	ErrDuplicateID = errors.New("duplicated image id")
	ErrReservedID  = errors.New("descriptor uses a reserved image id")
)

// A DescriptorTable is the ordered list of image descriptors of one stage.
type DescriptorTable []ImageDescriptor

// Validate checks that the table is non-empty and that ids are unique.
func (t DescriptorTable) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}

	seen := make(map[ImageID]bool, len(t))
	for _, d := range t {
		if !isImageID(d.ID) {
			return fmt.Errorf("%w: 0x%x", ErrReservedID, uint32(d.ID))
		}

		if seen[d.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}

		seen[d.ID] = true
	}

	return nil
}

// IndexOf returns the position of the descriptor with the given id, or -1.
func (t DescriptorTable) IndexOf(id ImageID) int {
	for i, d := range t {
		if d.ID == id {
			return i
		}
	}

	return -1
}

// LinkExecutables chains the executable descriptors in table order through
// NextHandoffID and marks the first one as the head of the chain. Non
// executable descriptors are unlinked.
func (t DescriptorTable) LinkExecutables() {
	prev := -1

	for i := range t {
		t[i].NextHandoffID = InvalidImageID
		t[i].EPInfo.Attr &^= EPFirstExe

		if !t[i].IsExecutable() {
			continue
		}

		if prev < 0 {
			t[i].EPInfo.Attr |= EPFirstExe
		} else {
			t[prev].NextHandoffID = t[i].ID
		}

		prev = i
	}
}

// Clone returns a deep copy of the table.
func (t DescriptorTable) Clone() DescriptorTable {
	c := make(DescriptorTable, len(t))
	copy(c, t)

	return c
}

// ByteSize returns the size of the table's binary layout.
func (t DescriptorTable) ByteSize() uint64 {
	return TableByteSize(len(t))
}

// TableByteSize returns the binary size of a table of n descriptors.
func TableByteSize(n int) uint64 {
	return uint64(n) * DescriptorSize
}

// Encode returns the binary layout of the table: the descriptors back to
// back.
func (t DescriptorTable) Encode() []byte {
	buf := make([]byte, 0, t.ByteSize())
	for _, d := range t {
		buf = append(buf, d.Encode()...)
	}

	return buf
}

// DecodeTable reads n descriptors from buf.
func DecodeTable(buf []byte, n int) (DescriptorTable, error) {
	if uint64(len(buf)) < TableByteSize(n) {
		return nil, fmt.Errorf("%w: table of %d descriptors", ErrShortRecord, n)
	}

	t := make(DescriptorTable, n)
	for i := range t {
		d, err := DecodeDescriptor(buf[i*DescriptorSize:])
		if err != nil {
			return nil, err
		}

		t[i] = d
	}

	return t, nil
}
