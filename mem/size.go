package mem

// Byte-size units used when describing memory maps.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// An AddressRange is a half-open physical address range [Start, Start+Size).
type AddressRange struct {
	Start uint64
	Size  uint64
}

// End returns the first address after the range.
func (r AddressRange) End() uint64 {
	return r.Start + r.Size
}

// Contains checks if the whole of [addr, addr+size) falls inside the range.
func (r AddressRange) Contains(addr, size uint64) bool {
	if addr < r.Start {
		return false
	}

	if addr+size < addr {
		return false
	}

	return addr+size <= r.End()
}

// Overlaps checks if two ranges share at least one byte.
func (r AddressRange) Overlaps(o AddressRange) bool {
	if r.Size == 0 || o.Size == 0 {
		return false
	}

	return r.Start < o.End() && o.Start < r.End()
}
