package imgdesc

import "fmt"

// ImageID identifies a loadable image. IDs are unique within one boot stage.
type ImageID uint32

// InvalidImageID terminates a handoff chain.
const InvalidImageID ImageID = 0xFFFFFFFF

// Well-known image IDs, numbered as the trusted-firmware image table does.
const (
	BL2ImageID        ImageID = 1
	BL31ImageID       ImageID = 3
	BL32ImageID       ImageID = 4
	BL33ImageID       ImageID = 5
	BL32Extra1ImageID ImageID = 21
	BL32Extra2ImageID ImageID = 22
	HWConfigID        ImageID = 27
	SOCFWConfigID     ImageID = 28
	TOSFWConfigID     ImageID = 29
	NTFWConfigID      ImageID = 30
	FWConfigID        ImageID = 31
	TBFWConfigID      ImageID = 32
)

var imageNames = map[ImageID]string{
	BL2ImageID:        "bl2",
	BL31ImageID:       "bl31",
	BL32ImageID:       "bl32",
	BL33ImageID:       "bl33",
	BL32Extra1ImageID: "bl32_extra1",
	BL32Extra2ImageID: "bl32_extra2",
	HWConfigID:        "hw_config",
	SOCFWConfigID:     "soc_fw_config",
	TOSFWConfigID:     "tos_fw_config",
	NTFWConfigID:      "nt_fw_config",
	FWConfigID:        "fw_config",
	TBFWConfigID:      "tb_fw_config",
}

func (id ImageID) String() string {
	if id == InvalidImageID {
		return "invalid"
	}

	if name, ok := imageNames[id]; ok {
		return name
	}

	return fmt.Sprintf("image%d", uint32(id))
}

// ParseImageID accepts a well-known image name or a decimal number.
func ParseImageID(s string) (ImageID, error) {
	for id, name := range imageNames {
		if name == s {
			return id, nil
		}
	}

	var n uint32
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return InvalidImageID, fmt.Errorf("unknown image %q", s)
	}

	if fmt.Sprint(n) != s {
		return InvalidImageID, fmt.Errorf("unknown image %q", s)
	}

	return ImageID(n), nil
}
