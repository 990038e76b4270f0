// Package mem models the physical memory of the machine that the boot stages
// run on.
package mem

import (
	"errors"
)

// ErrOutOfCapacity is returned when an access reaches beyond the capacity of
// the storage.
var ErrOutOfCapacity = errors.New(
	"accessing physical address beyond the storage capacity")

// A Storage keeps the data of the modelled DRAM.
//
// The storage implementation manages the storage in units. The unit is
// similar to the concept of page in memory management. For the units that are
// not touched by Read and Write, no memory is allocated, so a storage can
// model a large physical address space cheaply.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = 4 * KB
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes addressable in the storage.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// createOrGetStorageUnit retrieves a storage unit if the unit has been
// created before. Otherwise it initializes a storage unit in the storage.
func (s *Storage) createOrGetStorageUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *Storage) mustBeInside(address, length uint64) error {
	if address+length < address || address+length > s.capacity {
		return ErrOutOfCapacity
	}

	return nil
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	if err := s.mustBeInside(address, length); err != nil {
		return nil, err
	}

	currAddr := address
	lenLeft := length
	dataOffset := uint64(0)
	res := make([]byte, length)

	for lenLeft > 0 {
		unit := s.createOrGetStorageUnit(currAddr)

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenToRead := min(lenLeft, baseAddr+s.unitSize-currAddr)

		copy(res[dataOffset:dataOffset+lenToRead],
			unit[inUnitAddr:inUnitAddr+lenToRead])
		lenLeft -= lenToRead
		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	if err := s.mustBeInside(address, uint64(len(data))); err != nil {
		return err
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit := s.createOrGetStorageUnit(currAddr)

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenLeftInData := uint64(len(data)) - dataOffset
		lenToWrite := min(lenLeftInData, baseAddr+s.unitSize-currAddr)

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])
		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// Fill sets every byte of [address, address+length) to value.
func (s *Storage) Fill(address, length uint64, value byte) error {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = value
	}

	return s.Write(address, buf)
}
