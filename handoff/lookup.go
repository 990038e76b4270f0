package handoff

import (
	"github.com/sarchlab/bootchain/imgdesc"
)

type lookupService struct {
	comp *Comp
}

func (l *lookupService) activeTable(st State) (imgdesc.DescriptorTable, error) {
	size := imgdesc.TableByteSize(st.NumDescriptors)

	buf, err := l.comp.memory.Read(st.ActiveTable, size)
	if err != nil {
		return nil, err
	}

	return imgdesc.DecodeTable(buf, st.NumDescriptors)
}

func (l *lookupService) retrieveLoadInfo(
	st State,
) (imgdesc.LoadInfoView, error) {
	table, err := l.activeTable(st)
	if err != nil {
		return imgdesc.LoadInfoView{}, err
	}

	return imgdesc.MakeLoadInfoView(st.ActiveTable, table), nil
}
