package grocery

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Report", func() {
	var analysis *Analysis

	BeforeEach(func() {
		items := []Item{
			{Name: "Milk", Quantity: 1, Price: 350, Category: CategoryEssential},
			{Name: "Chips | Salted", Quantity: 2, Price: 500, Category: CategoryNonEssential},
		}
		analysis = &Analysis{
			ID:          "a",
			Source:      SourceReceipt,
			Items:       items,
			Suggestions: []string{"Skip the chips"},
			Summary:     Summarize(items),
			Currency:    "Rs.",
			CreatedAt:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		}
	})

	Describe("FormatMoney", func() {
		It("should print cents with two decimals", func() {
			Expect(FormatMoney("Rs.", 1250)).To(Equal("Rs.12.50"))
			Expect(FormatMoney("$", 5)).To(Equal("$0.05"))
			Expect(FormatMoney("$", -120)).To(Equal("-$1.20"))
		})
	})

	Describe("RenderMarkdown", func() {
		var report string

		JustBeforeEach(func() {
			report = RenderMarkdown(analysis)
		})

		It("should include the summary totals", func() {
			Expect(report).To(ContainSubstring("- **Total Spent:** Rs.8.50"))
			Expect(report).To(ContainSubstring("- **Essentials:** Rs.3.50"))
			Expect(report).To(ContainSubstring("- **Non-Essentials:** Rs.5.00"))
		})

		It("should include both savings scenarios", func() {
			Expect(report).To(ContainSubstring("Remove all non-essentials: save **Rs.5.00** (58.8%)"))
			Expect(report).To(ContainSubstring("Reduce non-essentials by 50%: save **Rs.2.50** (29.4%)"))
		})

		It("should include the source and date", func() {
			Expect(report).To(ContainSubstring("_2024-01-15 10:30 · Receipt OCR_"))
		})

		It("should escape pipes in item names", func() {
			Expect(report).To(ContainSubstring(`| Chips \| Salted | 2 | Rs.5.00 |`))
		})

		It("should list suggestions", func() {
			Expect(report).To(ContainSubstring("## Suggestions\n\n- Skip the chips\n"))
		})

		When("there is nothing to report", func() {
			BeforeEach(func() {
				analysis.Items = nil
				analysis.Suggestions = nil
				analysis.Summary = Summarize(nil)
			})

			It("should skip the savings section", func() {
				Expect(report).NotTo(ContainSubstring("Potential Savings"))
			})

			It("should mark empty categories", func() {
				Expect(report).To(ContainSubstring("## Essentials\n\n_None_"))
				Expect(report).To(ContainSubstring("## Non-Essentials\n\n_None_"))
			})
		})

		When("no currency was stored", func() {
			BeforeEach(func() {
				analysis.Currency = ""
			})

			It("should fall back to the default", func() {
				Expect(report).To(ContainSubstring("Rs.8.50"))
			})
		})
	})

	Describe("RenderHTML", func() {
		It("should render a full page with tables", func() {
			page, err := RenderHTML(analysis)
			Expect(err).NotTo(HaveOccurred())
			html := string(page)
			Expect(html).To(HavePrefix("<!DOCTYPE html>"))
			Expect(html).To(ContainSubstring("<title>Smart Grocery Saver - 2024-01-15</title>"))
			Expect(html).To(ContainSubstring(`<body class="report">`))
			Expect(html).To(ContainSubstring("<table>"))
			Expect(html).To(ContainSubstring("<h2>Summary</h2>"))
		})

		It("should escape item names", func() {
			analysis.Items[0].Name = "<script>alert(1)</script>"
			page, err := RenderHTML(analysis)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(page)).NotTo(ContainSubstring("<script>"))
		})
	})
})
