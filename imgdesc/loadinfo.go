package imgdesc

// LoadInfoEntry is one loadable image as seen through a LoadInfoView.
type LoadInfoEntry struct {
	ImageID       ImageID
	ImageInfoAddr uint64
	ImageInfo     ImageInfo
}

// A LoadInfoView is a read-only view over the descriptor table that is
// active at the time the view is taken.
type LoadInfoView struct {
	Base    uint64
	Entries []LoadInfoEntry
}

// MakeLoadInfoView lists every descriptor of a table living at base.
func MakeLoadInfoView(base uint64, table DescriptorTable) LoadInfoView {
	v := LoadInfoView{
		Base:    base,
		Entries: make([]LoadInfoEntry, len(table)),
	}

	for i, d := range table {
		v.Entries[i] = LoadInfoEntry{
			ImageID:       d.ID,
			ImageInfoAddr: base + uint64(i)*DescriptorSize + imageInfoOffset,
			ImageInfo:     d.ImageInfo,
		}
	}

	return v
}

// imageInfoOffset is where ImageInfo starts inside a descriptor record.
const imageInfoOffset = 8

// Find returns the entry of the given image.
func (v LoadInfoView) Find(id ImageID) (LoadInfoEntry, bool) {
	for _, e := range v.Entries {
		if e.ImageID == id {
			return e, true
		}
	}

	return LoadInfoEntry{}, false
}
