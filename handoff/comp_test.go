package handoff

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bootchain/hooking"
	"github.com/sarchlab/bootchain/imgdesc"
	"github.com/sarchlab/bootchain/mem"
	"github.com/sarchlab/bootchain/mem/cache"
	"go.uber.org/mock/gomock"
)

const (
	regionBase = 0x0400_1000
	regionSize = 0x1000
	stageTable = 0x0402_0000

	imageA imgdesc.ImageID = 100
	imageB imgdesc.ImageID = 101
	imageC imgdesc.ImageID = 102
)

func exeDesc(id imgdesc.ImageID, base uint64) imgdesc.ImageDescriptor {
	return imgdesc.ImageDescriptor{
		ID:            id,
		NextHandoffID: imgdesc.InvalidImageID,
		ImageInfo: imgdesc.ImageInfo{
			Base:    base,
			Size:    0x2000,
			MaxSize: 0x10000,
		},
		EPInfo: imgdesc.EntryPointInfo{
			PC:   base,
			SPSR: 0x3C5,
			Attr: imgdesc.EPExecutable,
		},
	}
}

func dataDesc(id imgdesc.ImageID, base uint64) imgdesc.ImageDescriptor {
	d := exeDesc(id, base)
	d.EPInfo = imgdesc.EntryPointInfo{}

	return d
}

func abcTable() imgdesc.DescriptorTable {
	return imgdesc.DescriptorTable{
		exeDesc(imageA, 0x0600_0000),
		dataDesc(imageB, 0x0700_0000),
		exeDesc(imageC, 0x8800_0000),
	}
}

var _ = Describe("Comp", func() {
	var (
		storage *mem.Storage
		dcache  *cache.Comp
		table   imgdesc.DescriptorTable
		layout  Layout
		comp    *Comp
		st      State
	)

	build := func(populator Populator) {
		var err error
		comp, err = MakeBuilder().
			WithMemory(dcache).
			WithLayout(layout).
			WithPopulator(populator).
			Build("Handoff")
		Expect(err).NotTo(HaveOccurred())

		st, err = Install(dcache, stageTable, table)
		Expect(err).NotTo(HaveOccurred())
	}

	regionBytes := func() []byte {
		data, err := dcache.Read(layout.Base, layout.Required())
		Expect(err).NotTo(HaveOccurred())

		return data
	}

	BeforeEach(func() {
		storage = mem.NewStorage(4 * mem.GB)
		dcache = cache.MakeBuilder().WithBacking(storage).Build("DCache")
		table = abcTable()
		layout = Layout{
			Base:           regionBase,
			Size:           regionSize,
			NumDescriptors: len(table),
		}
	})

	Context("when building", func() {
		It("should reject an undersized region", func() {
			layout.Size = layout.Required() - 1

			_, err := MakeBuilder().
				WithMemory(dcache).
				WithLayout(layout).
				Build("Handoff")

			Expect(err).To(MatchError(ErrRegionTooSmall))
		})

		It("should panic without memory", func() {
			Expect(func() {
				_, _ = MakeBuilder().WithLayout(layout).Build("Handoff")
			}).To(Panic())
		})
	})

	Context("when publishing", func() {
		BeforeEach(func() {
			build(nil)
		})

		It("should copy the descriptors byte for byte", func() {
			_, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())

			copied, _ := dcache.Read(layout.DescAddr(), table.ByteSize())
			Expect(copied).To(Equal(table.Encode()))
		})

		It("should redirect the state to the copy", func() {
			next, ref, err := comp.Publish(st)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.ActiveTable).To(Equal(layout.DescAddr()))
			Expect(next.Phase).To(Equal(PhasePublished))
			Expect(next.Published).To(Equal(layout.ParamsAddr()))
			Expect(ref.Addr).To(Equal(layout.ParamsAddr()))
			Expect(st.ActiveTable).To(Equal(uint64(stageTable)))
		})

		It("should only list executable images, pointing into the copy", func() {
			_, ref, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())

			Expect(ref.Block.IDs()).
				To(Equal([]imgdesc.ImageID{imageA, imageC}))
			Expect(ref.Block.Entries[0].DescAddr).
				To(Equal(layout.DescAddr()))
			Expect(ref.Block.Entries[1].DescAddr).
				To(Equal(layout.DescAddr() + 2*imgdesc.DescriptorSize))

			for _, e := range ref.Block.Entries {
				Expect(layout.Used().Contains(e.DescAddr,
					imgdesc.DescriptorSize)).To(BeTrue())
			}
		})

		It("should store the params block after the descriptors", func() {
			_, ref, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())

			buf, _ := dcache.Read(layout.ParamsAddr(), layout.ParamsSize())
			block, err := imgdesc.DecodeParamsBlock(buf, layout.NumDescriptors)
			Expect(err).NotTo(HaveOccurred())
			Expect(block.Entries).To(Equal(ref.Block.Entries))
		})

		It("should give identical region contents when published twice", func() {
			next, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())
			first := regionBytes()

			_, _, err = comp.Publish(next)
			Expect(err).NotTo(HaveOccurred())

			Expect(regionBytes()).To(Equal(first))
		})

		It("should not depend on the original table afterwards", func() {
			next, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())

			Expect(dcache.Write(stageTable,
				make([]byte, table.ByteSize()))).To(Succeed())

			view, err := comp.RetrieveLoadInfo(next)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Entries).To(HaveLen(3))
			Expect(view.Entries[2].ImageID).To(Equal(imageC))
		})

		It("should fail with a config defect without executable images", func() {
			table = imgdesc.DescriptorTable{dataDesc(imageB, 0x0700_0000)}
			layout.NumDescriptors = 1
			build(nil)

			_, _, err := comp.Publish(st)

			Expect(err).To(MatchError(ErrConfigDefect))
			Expect(err).To(MatchError(imgdesc.ErrNoExecutable))

			var fault *Fault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Kind).To(Equal(ConfigDefect))
		})

		It("should fail when the state does not match the layout", func() {
			st.NumDescriptors = 2

			_, _, err := comp.Publish(st)

			Expect(err).To(MatchError(ErrConfigDefect))
		})

		It("should invoke hooks in order", func() {
			var positions []*hooking.HookPos
			comp.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
				positions = append(positions, ctx.Pos)
			}))

			_, _, err := comp.Publish(st)

			Expect(err).NotTo(HaveOccurred())
			Expect(positions).To(Equal([]*hooking.HookPos{
				HookPosRelocate,
				HookPosRedirect,
				HookPosParamsDerived,
				HookPosPublished,
			}))
		})
	})

	Context("when looking up load info", func() {
		BeforeEach(func() {
			build(nil)
		})

		It("should see the original table before publishing", func() {
			view, err := comp.RetrieveLoadInfo(st)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Base).To(Equal(uint64(stageTable)))
			Expect(view.Entries).To(HaveLen(3))
		})

		It("should see the copy after publishing", func() {
			next, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())

			view, err := comp.RetrieveLoadInfo(next)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Base).To(Equal(layout.DescAddr()))
			Expect(view.Base).NotTo(Equal(uint64(stageTable)))
		})
	})

	Context("when flushing", func() {
		BeforeEach(func() {
			build(nil)
		})

		It("should panic before publishing", func() {
			Expect(func() { _, _ = comp.FlushForHandoff(st) }).
				To(PanicWith(MatchError(ErrPreconditionViolation)))
		})

		It("should make the region visible in memory", func() {
			next, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())

			inMem, _ := storage.Read(layout.Base, layout.Required())
			Expect(inMem).NotTo(Equal(regionBytes()))

			flushed, err := comp.FlushForHandoff(next)

			Expect(err).NotTo(HaveOccurred())
			Expect(flushed.Phase).To(Equal(PhaseFlushed))

			inMem, _ = storage.Read(layout.Base, layout.Required())
			Expect(inMem).To(Equal(regionBytes()))
		})

		It("should forbid publishing again", func() {
			next, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())
			flushed, err := comp.FlushForHandoff(next)
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { _, _, _ = comp.Publish(flushed) }).
				To(PanicWith(MatchError(ErrPreconditionViolation)))
		})
	})

	Context("with a populator", func() {
		var (
			mockCtrl  *gomock.Controller
			populator *MockPopulator
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			populator = NewMockPopulator(mockCtrl)
			build(populator)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should store what the populator fills in", func() {
			populator.EXPECT().
				FinalizeParams(gomock.Any()).
				DoAndReturn(func(p *imgdesc.ExecutionParamsBlock) error {
					p.Entries[0].EPInfo.Args[1] = 0x0400_0000
					return nil
				})

			_, ref, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Block.Entries[0].EPInfo.Args[1]).
				To(Equal(uint64(0x0400_0000)))

			buf, _ := dcache.Read(layout.ParamsAddr(), layout.ParamsSize())
			block, _ := imgdesc.DecodeParamsBlock(buf, layout.NumDescriptors)
			Expect(block.Entries[0].EPInfo.Args[1]).
				To(Equal(uint64(0x0400_0000)))

			copied, _ := dcache.Read(layout.DescAddr(), table.ByteSize())
			Expect(copied).To(Equal(table.Encode()))
		})

		It("should reject a populator that reorders entries", func() {
			populator.EXPECT().
				FinalizeParams(gomock.Any()).
				DoAndReturn(func(p *imgdesc.ExecutionParamsBlock) error {
					p.Entries[0], p.Entries[1] = p.Entries[1], p.Entries[0]
					return nil
				})

			_, _, err := comp.Publish(st)

			Expect(err).To(MatchError(ErrConfigDefect))
		})

		It("should reject a populator that drops entries", func() {
			populator.EXPECT().
				FinalizeParams(gomock.Any()).
				DoAndReturn(func(p *imgdesc.ExecutionParamsBlock) error {
					p.Entries = p.Entries[:1]
					return nil
				})

			_, _, err := comp.Publish(st)

			Expect(err).To(MatchError(ErrConfigDefect))
		})

		It("should turn populator errors into config defects", func() {
			failure := errors.New("no hw config")
			populator.EXPECT().FinalizeParams(gomock.Any()).Return(failure)

			_, _, err := comp.Publish(st)

			Expect(err).To(MatchError(ErrConfigDefect))
			Expect(err).To(MatchError(failure))
		})

		It("should populate again on every publish", func() {
			populator.EXPECT().FinalizeParams(gomock.Any()).Return(nil).Times(2)

			next, _, err := comp.Publish(st)
			Expect(err).NotTo(HaveOccurred())
			_, _, err = comp.Publish(next)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("Comp with mocked memory", func() {
	var (
		mockCtrl *gomock.Controller
		memory   *MockDataCache
		layout   Layout
		comp     *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		memory = NewMockDataCache(mockCtrl)
		layout = Layout{Base: regionBase, Size: regionSize, NumDescriptors: 3}

		var err error
		comp, err = MakeBuilder().
			WithMemory(memory).
			WithLayout(layout).
			Build("Handoff")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should flush exactly the two copies", func() {
		st := State{
			Phase:          PhasePublished,
			ActiveTable:    layout.DescAddr(),
			NumDescriptors: 3,
			Published:      layout.ParamsAddr(),
		}

		memory.EXPECT().
			FlushRange(layout.DescAddr(),
				3*uint64(imgdesc.DescriptorSize)+imgdesc.ParamsBlockSize(3)).
			Return(cache.FlushReport{}, nil)

		next, err := comp.FlushForHandoff(st)

		Expect(err).NotTo(HaveOccurred())
		Expect(next.Phase).To(Equal(PhaseFlushed))
	})

	It("should report flush failures", func() {
		st := State{
			Phase:          PhasePublished,
			ActiveTable:    layout.DescAddr(),
			NumDescriptors: 3,
			Published:      layout.ParamsAddr(),
		}
		failure := errors.New("bus error")

		memory.EXPECT().
			FlushRange(gomock.Any(), gomock.Any()).
			Return(cache.FlushReport{}, failure)

		_, err := comp.FlushForHandoff(st)

		Expect(err).To(MatchError(failure))
	})

	It("should report an unreadable source table as a config defect", func() {
		st := NewState(stageTable, 3)
		memory.EXPECT().
			Read(uint64(stageTable), 3*uint64(imgdesc.DescriptorSize)).
			Return(nil, mem.ErrOutOfCapacity)

		_, _, err := comp.Publish(st)

		Expect(err).To(MatchError(ErrConfigDefect))
		Expect(err).To(MatchError(mem.ErrOutOfCapacity))
	})
})
