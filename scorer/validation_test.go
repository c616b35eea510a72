package scorer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/JohnPlummer/perspective-client/scorer"
)

var _ = Describe("Attribute validation", func() {
	Describe("AllowedAttributes", func() {
		It("should list the five supported attributes", func() {
			Expect(scorer.AllowedAttributes()).To(Equal([]scorer.Attribute{
				"TOXICITY", "IDENTITY_ATTACK", "INSULT", "THREAT", "SEXUALLY_EXPLICIT",
			}))
		})

		It("should return a copy", func() {
			allowed := scorer.AllowedAttributes()
			allowed[0] = "NOT_REAL"
			Expect(scorer.IsAllowed(scorer.Toxicity)).To(BeTrue())
			Expect(scorer.AllowedAttributes()[0]).To(Equal(scorer.Toxicity))
		})
	})

	Describe("IsAllowed", func() {
		DescribeTable("membership",
			func(attr scorer.Attribute, expected bool) {
				Expect(scorer.IsAllowed(attr)).To(Equal(expected))
			},
			Entry("toxicity", scorer.Toxicity, true),
			Entry("identity attack", scorer.IdentityAttack, true),
			Entry("insult", scorer.Insult, true),
			Entry("threat", scorer.Threat, true),
			Entry("sexually explicit", scorer.SexuallyExplicit, true),
			Entry("lowercase name", scorer.Attribute("toxicity"), false),
			Entry("experimental attribute", scorer.Attribute("SEVERE_TOXICITY"), false),
			Entry("empty", scorer.Attribute(""), false),
		)
	})

	Describe("ValidateAttributes", func() {
		It("should accept a non-empty supported set", func() {
			Expect(scorer.ValidateAttributes([]scorer.Attribute{scorer.Insult, scorer.Threat})).To(Succeed())
		})

		It("should reject an empty set", func() {
			Expect(scorer.ValidateAttributes(nil)).To(MatchError(scorer.ErrEmptyAttributeSet))
		})

		It("should name the first unsupported attribute", func() {
			err := scorer.ValidateAttributes([]scorer.Attribute{scorer.Insult, "FIRST_BAD", "SECOND_BAD"})
			Expect(err).To(MatchError(scorer.ErrInvalidAttribute))
			Expect(err.Error()).To(ContainSubstring("FIRST_BAD"))
			Expect(err.Error()).ToNot(ContainSubstring("SECOND_BAD"))
		})
	})

	Describe("ParseAttributes", func() {
		It("should trim, upper-case and skip empty elements", func() {
			Expect(scorer.ParseAttributes(" toxicity, THREAT,,insult ")).To(Equal([]scorer.Attribute{
				scorer.Toxicity, scorer.Threat, scorer.Insult,
			}))
		})

		It("should return nil for an empty list", func() {
			Expect(scorer.ParseAttributes(" , ")).To(BeNil())
		})
	})
})
