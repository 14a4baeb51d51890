package v1_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/custom-policies/policy-console/api/v1"
)

var _ = Describe("Action tokens", func() {
	Describe("EncodeActions", func() {
		It("encodes an email action as its bare type", func() {
			encoded, err := v1.EncodeActions([]v1.Action{{Type: v1.ActionTypeEmail}})

			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal("email"))
		})

		It("encodes a webhook action with its endpoint", func() {
			encoded, err := v1.EncodeActions([]v1.Action{
				{Type: v1.ActionTypeWebhook, Endpoint: "https://x"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal("webhook https://x"))
		})

		It("joins multiple actions with semicolons in declaration order", func() {
			encoded, err := v1.EncodeActions([]v1.Action{
				{Type: v1.ActionTypeEmail},
				{Type: v1.ActionTypeWebhook, Endpoint: "https://x"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal("email;webhook https://x"))
		})

		It("encodes an empty list as an empty string", func() {
			encoded, err := v1.EncodeActions([]v1.Action{})

			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal(""))
		})

		It("drops actions whose type has not been chosen", func() {
			encoded, err := v1.EncodeActions([]v1.Action{
				{Type: v1.ActionTypeEmail},
				{},
				{Type: v1.ActionTypeWebhook, Endpoint: "https://x"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal("email;webhook https://x"))
		})

		It("rejects an unknown action type", func() {
			_, err := v1.EncodeActions([]v1.Action{{Type: "pager"}})

			Expect(err).To(MatchError(v1.ErrUnknownActionType))
		})

		It("keeps spaces inside a webhook endpoint", func() {
			encoded, err := v1.EncodeActions([]v1.Action{
				{Type: v1.ActionTypeWebhook, Endpoint: "https://x/hook?a=b c"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal("webhook https://x/hook?a=b c"))
		})
	})

	Describe("DecodeActions", func() {
		It("decodes an empty string to an empty list", func() {
			actions, err := v1.DecodeActions("")

			Expect(err).NotTo(HaveOccurred())
			Expect(actions).To(BeEmpty())
		})

		It("decodes tokens preserving order and count", func() {
			actions, err := v1.DecodeActions("email;webhook https://x")

			Expect(err).NotTo(HaveOccurred())
			Expect(actions).To(Equal([]v1.Action{
				{Type: v1.ActionTypeEmail},
				{Type: v1.ActionTypeWebhook, Endpoint: "https://x"},
			}))
		})

		It("treats the token remainder as the webhook endpoint", func() {
			actions, err := v1.DecodeActions("webhook https://x/hook?a=b c")

			Expect(err).NotTo(HaveOccurred())
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Endpoint).To(Equal("https://x/hook?a=b c"))
		})

		It("skips stray separators", func() {
			actions, err := v1.DecodeActions(";email;;webhook https://x;")

			Expect(err).NotTo(HaveOccurred())
			Expect(actions).To(HaveLen(2))
		})

		It("rejects tokens with an unknown type", func() {
			_, err := v1.DecodeActions("email;pager 555-0100")

			Expect(err).To(MatchError(v1.ErrUnknownActionType))
		})
	})

	Describe("Known", func() {
		It("recognizes the closed set of types", func() {
			Expect(v1.ActionTypeEmail.Known()).To(BeTrue())
			Expect(v1.ActionTypeWebhook.Known()).To(BeTrue())
			Expect(v1.ActionType("").Known()).To(BeFalse())
			Expect(v1.ActionType("pager").Known()).To(BeFalse())
		})
	})
})
