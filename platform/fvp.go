package platform

import (
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem"
)

// Memory map of the Arm fixed virtual platform.
const (
	FVPDRAMSize    = 4 * mem.GB
	FVPRegionBase  = 0x04001000
	FVPRegionSize  = 4 * mem.KB
	FVPStageRWBase = 0x04020000

	fvpNumImages = 7
)

// The reserved region must hold the descriptor table and the parameters
// block of every FVP image.
const _ uint64 = FVPRegionSize - (fvpNumImages*imgdesc.DescriptorSize +
	imgdesc.ParamsHeaderSize + fvpNumImages*imgdesc.ParamsEntrySize)

// Saved program status of the FVP entry points.
const (
	spsrEL3 = 0x3cd
	spsrEL1 = 0x3c5
	spsrEL2 = 0x3c9
)

// Builtin returns a fresh copy of a built-in platform.
func Builtin(name string) (*Config, bool) {
	switch name {
	case "fvp":
		return fvp(), true
	default:
		return nil, false
	}
}

// BuiltinNames lists the built-in platforms.
func BuiltinNames() []string {
	return []string{"fvp"}
}

func fvp() *Config {
	c := &Config{
		Name:            "fvp",
		DRAMSize:        FVPDRAMSize,
		RegionBase:      FVPRegionBase,
		RegionSize:      FVPRegionSize,
		StageRWBase:     FVPStageRWBase,
		LinkExecutables: true,
		Cache:           defaultCache(),
		Images: []Image{
			{
				Name: "bl31", Base: 0x04003000, Size: 0x2a000,
				MaxSize: 0x3d000, PC: 0x04003000, SPSR: spsrEL3,
				Executable: true, Secure: true,
				Args: map[int]ArgValue{
					1: {Image: "soc_fw_config"},
					2: {Image: "hw_config"},
				},
			},
			{
				Name: "bl32", Base: 0xff000000, Size: 0x80000,
				MaxSize: 0x200000, PC: 0xff000000, SPSR: spsrEL1,
				Executable: true, Secure: true,
				Args: map[int]ArgValue{
					0: {Image: "tos_fw_config"},
					1: {Image: "hw_config"},
				},
			},
			{
				Name: "bl33", Base: 0x88000000, Size: 0x100000,
				MaxSize: 0x8000000, PC: 0x88000000, SPSR: spsrEL2,
				Executable: true,
				Args: map[int]ArgValue{
					0: {Image: "nt_fw_config"},
					1: {Image: "hw_config"},
				},
			},
			{
				Name: "hw_config", Base: 0x82000000, Size: 0x4000,
				MaxSize: 0x8000, Secure: true,
			},
			{
				Name: "soc_fw_config", Base: 0x04040000, Size: 0x400,
				MaxSize: 0x1000, Secure: true,
			},
			{
				Name: "tos_fw_config", Base: 0x04041000, Size: 0x400,
				MaxSize: 0x1000, Secure: true,
			},
			{
				Name: "nt_fw_config", Base: 0x80000000, Size: 0x400,
				MaxSize: 0x1000,
			},
		},
	}

	if len(c.Images) != fvpNumImages {
		panic("fvp image count does not match its region sizing")
	}

	return c
}
