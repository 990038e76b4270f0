package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		base     *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		base = &HookableBase{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke hooks in registration order", func() {
		pos := &HookPos{Name: "Pos"}
		ctx := HookCtx{Pos: pos, Item: 1}

		h1 := NewMockHook(mockCtrl)
		h2 := NewMockHook(mockCtrl)
		base.AcceptHook(h1)
		base.AcceptHook(h2)

		gomock.InOrder(
			h1.EXPECT().Func(ctx),
			h2.EXPECT().Func(ctx),
		)

		base.InvokeHook(ctx)

		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should panic on duplicated hooks", func() {
		h := NewMockHook(mockCtrl)
		base.AcceptHook(h)

		Expect(func() { base.AcceptHook(h) }).To(Panic())
	})

	It("should accept hook funcs", func() {
		called := 0
		base.AcceptHook(HookFunc(func(HookCtx) { called++ }))
		base.AcceptHook(HookFunc(func(HookCtx) { called++ }))

		base.InvokeHook(HookCtx{})

		Expect(called).To(Equal(2))
	})
})
