package imgdesc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/bootchain/imgdesc"
)

var _ = Describe("DescriptorTable", func() {
	It("should reject empty tables", func() {
		Expect(imgdesc.DescriptorTable{}.Validate()).
			To(MatchError(imgdesc.ErrEmptyTable))
	})

	It("should reject duplicated ids", func() {
		t := imgdesc.DescriptorTable{
			exeDesc(imgdesc.BL31ImageID, 0x1000),
			exeDesc(imgdesc.BL31ImageID, 0x2000),
		}

		Expect(t.Validate()).To(MatchError(imgdesc.ErrDuplicateID))
	})

	It("should reject reserved ids", func() {
		t := imgdesc.DescriptorTable{exeDesc(0, 0x1000)}

		Expect(t.Validate()).To(MatchError(imgdesc.ErrReservedID))
	})

	It("should link executables in table order", func() {
		t := imgdesc.DescriptorTable{
			dataDesc(imgdesc.HWConfigID, 0x1000),
			exeDesc(imgdesc.BL31ImageID, 0x2000),
			exeDesc(imgdesc.BL32ImageID, 0x3000),
			dataDesc(imgdesc.TOSFWConfigID, 0x4000),
			exeDesc(imgdesc.BL33ImageID, 0x5000),
		}

		t.LinkExecutables()

		Expect(t[0].NextHandoffID).To(Equal(imgdesc.InvalidImageID))
		Expect(t[1].EPInfo.IsFirstExe()).To(BeTrue())
		Expect(t[1].NextHandoffID).To(Equal(imgdesc.BL32ImageID))
		Expect(t[2].EPInfo.IsFirstExe()).To(BeFalse())
		Expect(t[2].NextHandoffID).To(Equal(imgdesc.BL33ImageID))
		Expect(t[4].NextHandoffID).To(Equal(imgdesc.InvalidImageID))
	})

	It("should encode descriptors back to back", func() {
		t := imgdesc.DescriptorTable{
			exeDesc(imgdesc.BL31ImageID, 0x2000),
			dataDesc(imgdesc.HWConfigID, 0x1000),
		}

		buf := t.Encode()
		Expect(buf).To(HaveLen(2 * imgdesc.DescriptorSize))
		Expect(buf[imgdesc.DescriptorSize:]).To(Equal(t[1].Encode()))

		decoded, err := imgdesc.DecodeTable(buf, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(t))
	})

	It("should build a load info view over every descriptor", func() {
		t := imgdesc.DescriptorTable{
			exeDesc(imgdesc.BL31ImageID, 0x2000),
			dataDesc(imgdesc.HWConfigID, 0x1000),
		}

		v := imgdesc.MakeLoadInfoView(0x8000, t)

		Expect(v.Base).To(Equal(uint64(0x8000)))
		Expect(v.Entries).To(HaveLen(2))
		Expect(v.Entries[1].ImageInfoAddr).
			To(Equal(uint64(0x8000 + imgdesc.DescriptorSize + 8)))

		e, found := v.Find(imgdesc.HWConfigID)
		Expect(found).To(BeTrue())
		Expect(e.ImageInfo.Base).To(Equal(uint64(0x1000)))
	})
})
