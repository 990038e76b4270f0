package imgdesc

import (
	"errors"
	"fmt"
)

// Parameter block header values.
const (
	ParamTypeBLParams uint8 = 0x05
	ParamVersion      uint8 = 0x02
)

// Sizes of the parameter records, in bytes.
const (
	ParamsHeaderSize = 16
	ParamsEntrySize  = 16 + ImageInfoSize + EntryPointInfoSize
)

// Errors reported when deriving the execution parameters.
var (
	ErrNoExecutable  = errors.New("no executable image in descriptor table")
	ErrBrokenChain   = errors.New("broken handoff chain")
	ErrTooManyParams = errors.New("more parameter entries than slots")
)

// ParamsHeader heads an ExecutionParamsBlock.
type ParamsHeader struct {
	Type       uint8
	Version    uint8
	_          uint16
	Size       uint32
	NumEntries uint32
	Attr       uint32
}

// A ParamsEntry references one executable image of the relocated table.
type ParamsEntry struct {
	ImageID   ImageID
	_         uint32
	DescAddr  uint64
	ImageInfo ImageInfo
	EPInfo    EntryPointInfo
}

// ExecutionParamsBlock is what the next stage reads to decide what to execute
// and with which initial state.
type ExecutionParamsBlock struct {
	Header  ParamsHeader
	Entries []ParamsEntry
}

// ParamsBlockSize returns the binary size of a block with n entry slots.
func ParamsBlockSize(n int) uint64 {
	return ParamsHeaderSize + uint64(n)*ParamsEntrySize
}

// IDs returns the image ids of the entries, in order.
func (b *ExecutionParamsBlock) IDs() []ImageID {
	ids := make([]ImageID, len(b.Entries))
	for i, e := range b.Entries {
		ids[i] = e.ImageID
	}

	return ids
}

// Clone returns a deep copy of the block.
func (b *ExecutionParamsBlock) Clone() *ExecutionParamsBlock {
	c := &ExecutionParamsBlock{Header: b.Header}
	c.Entries = make([]ParamsEntry, len(b.Entries))
	copy(c.Entries, b.Entries)

	return c
}

// Encode returns the binary layout of the block with the given number of
// entry slots. Unused slots are zero.
func (b *ExecutionParamsBlock) Encode(slots int) ([]byte, error) {
	if len(b.Entries) > slots {
		return nil, fmt.Errorf("%w: %d > %d",
			ErrTooManyParams, len(b.Entries), slots)
	}

	h := b.Header
	h.NumEntries = uint32(len(b.Entries))

	buf := make([]byte, 0, ParamsBlockSize(slots))
	buf = append(buf, encodeRecord(h, ParamsHeaderSize)...)

	for _, e := range b.Entries {
		buf = append(buf, encodeRecord(e, ParamsEntrySize)...)
	}

	return buf[:ParamsBlockSize(slots)], nil
}

// DecodeParamsBlock reads a block with the given number of entry slots.
func DecodeParamsBlock(buf []byte, slots int) (*ExecutionParamsBlock, error) {
	if uint64(len(buf)) < ParamsBlockSize(slots) {
		return nil, fmt.Errorf("%w: params block of %d slots",
			ErrShortRecord, slots)
	}

	b := &ExecutionParamsBlock{}
	if err := decodeRecord(buf, ParamsHeaderSize, &b.Header); err != nil {
		return nil, err
	}

	n := int(b.Header.NumEntries)
	if n > slots {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyParams, n, slots)
	}

	b.Entries = make([]ParamsEntry, n)
	for i := range b.Entries {
		offset := ParamsHeaderSize + i*ParamsEntrySize
		if err := decodeRecord(buf[offset:], ParamsEntrySize,
			&b.Entries[i]); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// DeriveParams builds the execution parameters from a table that lives at
// tableAddr. Each entry points at its descriptor inside the table at
// tableAddr.
//
// When the descriptors carry handoff links, the entries follow the chain that
// starts at the descriptor marked as first executable (or the first
// executable one when none is marked). Otherwise the entries are the
// executable descriptors in table order.
func DeriveParams(
	tableAddr uint64,
	table DescriptorTable,
) (*ExecutionParamsBlock, error) {
	head := chainHead(table)
	if head < 0 {
		return nil, ErrNoExecutable
	}

	b := &ExecutionParamsBlock{
		Header: ParamsHeader{
			Type:    ParamTypeBLParams,
			Version: ParamVersion,
			Size:    uint32(ParamsBlockSize(len(table))),
		},
	}

	order, err := executionOrder(table, head)
	if err != nil {
		return nil, err
	}

	for _, index := range order {
		d := table[index]
		b.Entries = append(b.Entries, ParamsEntry{
			ImageID:   d.ID,
			DescAddr:  tableAddr + uint64(index)*DescriptorSize,
			ImageInfo: d.ImageInfo,
			EPInfo:    d.EPInfo,
		})
	}

	return b, nil
}

func executionOrder(table DescriptorTable, head int) ([]int, error) {
	if !hasHandoffLinks(table) {
		order := []int{}
		for i, d := range table {
			if d.IsExecutable() {
				order = append(order, i)
			}
		}

		return order, nil
	}

	order := []int{}
	visited := make(map[int]bool)

	for index := head; ; {
		d := table[index]

		if visited[index] {
			return nil, fmt.Errorf("%w: %s is linked twice", ErrBrokenChain, d.ID)
		}
		visited[index] = true

		if !d.IsExecutable() {
			return nil, fmt.Errorf("%w: %s is not executable", ErrBrokenChain, d.ID)
		}

		order = append(order, index)

		if !isImageID(d.NextHandoffID) {
			return order, nil
		}

		index = table.IndexOf(d.NextHandoffID)
		if index < 0 {
			return nil, fmt.Errorf("%w: %s hands off to unknown %s",
				ErrBrokenChain, d.ID, d.NextHandoffID)
		}
	}
}

// isImageID tells if id can name an image. Zero is the unset value of a
// descriptor literal and never names an image.
func isImageID(id ImageID) bool {
	return id != InvalidImageID && id != 0
}

func hasHandoffLinks(table DescriptorTable) bool {
	for _, d := range table {
		if isImageID(d.NextHandoffID) {
			return true
		}
	}

	return false
}

func chainHead(table DescriptorTable) int {
	first := -1

	for i, d := range table {
		if !d.IsExecutable() {
			continue
		}

		if d.EPInfo.IsFirstExe() {
			return i
		}

		if first < 0 {
			first = i
		}
	}

	return first
}
