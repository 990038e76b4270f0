// Package imgdesc defines the image descriptors that a boot stage hands to
// the next one, together with their fixed binary layouts.
//
// The layouts are versionless and not self-describing. Both stages must be
// built against this package; there is no runtime negotiation.
package imgdesc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Image attribute bits.
const (
	ImageAttrSkipLoading uint32 = 0x02
	ImageAttrPlatSetup   uint32 = 0x04
)

// Entry point attribute bits.
const (
	EPSecure     uint32 = 0x0
	EPNonSecure  uint32 = 0x1
	EPExecutable uint32 = 0x1 << 4
	EPFirstExe   uint32 = 0x1 << 5
)

// NumEPArgs is the number of arguments passed to an entry point.
const NumEPArgs = 8

// Sizes of the binary records, in bytes.
const (
	ImageInfoSize      = 24
	EntryPointInfoSize = 16 + 8*NumEPArgs
	DescriptorSize     = 8 + ImageInfoSize + EntryPointInfoSize
)

// byteOrder is the byte order of all records.
var byteOrder = binary.LittleEndian

// ErrShortRecord is returned when decoding from too few bytes.
var ErrShortRecord = errors.New("record is shorter than its layout")

// ImageInfo describes where an image lives.
type ImageInfo struct {
	Base    uint64
	Size    uint32
	MaxSize uint32
	Attr    uint32
	_       uint32
}

// EntryPointInfo describes how an image is entered.
type EntryPointInfo struct {
	PC   uint64
	SPSR uint32
	Attr uint32
	Args [NumEPArgs]uint64
}

// IsExecutable tells if the entry point is run by the next stage.
func (e EntryPointInfo) IsExecutable() bool {
	return e.Attr&EPExecutable != 0
}

// IsFirstExe tells if the entry point heads the handoff chain.
func (e EntryPointInfo) IsFirstExe() bool {
	return e.Attr&EPFirstExe != 0
}

// IsSecure tells if the image runs in the secure world.
func (e EntryPointInfo) IsSecure() bool {
	return e.Attr&EPNonSecure == 0
}

// An ImageDescriptor is one entry per loadable image.
type ImageDescriptor struct {
	ID            ImageID
	NextHandoffID ImageID
	ImageInfo     ImageInfo
	EPInfo        EntryPointInfo
}

// IsExecutable tells if the next stage executes the image.
func (d ImageDescriptor) IsExecutable() bool {
	return d.EPInfo.IsExecutable()
}

func (d ImageDescriptor) String() string {
	return fmt.Sprintf("%s@0x%x+0x%x", d.ID, d.ImageInfo.Base, d.ImageInfo.Size)
}

// Encode returns the binary layout of the descriptor.
func (d ImageDescriptor) Encode() []byte {
	return encodeRecord(d, DescriptorSize)
}

// DecodeDescriptor reads a descriptor from its binary layout.
func DecodeDescriptor(buf []byte) (ImageDescriptor, error) {
	d := ImageDescriptor{}
	err := decodeRecord(buf, DescriptorSize, &d)

	return d, err
}

func encodeRecord(v any, size int) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, size))

	err := binary.Write(buf, byteOrder, v)
	if err != nil {
		panic(err)
	}

	if buf.Len() != size {
		panic(fmt.Sprintf("record %T encoded to %d bytes, layout says %d",
			v, buf.Len(), size))
	}

	return buf.Bytes()
}

func decodeRecord(buf []byte, size int, v any) error {
	if len(buf) < size {
		return fmt.Errorf("%w: %d < %d", ErrShortRecord, len(buf), size)
	}

	return binary.Read(bytes.NewReader(buf[:size]), byteOrder, v)
}
