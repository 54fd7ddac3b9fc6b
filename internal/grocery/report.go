package grocery

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// FormatMoney formats an amount in cents behind a currency label, e.g. Rs.12.50
func FormatMoney(currency string, cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, currency, cents/100, cents%100)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// escapeCell keeps item names from breaking a markdown table
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func sourceLabel(s Source) string {
	if s == SourceReceipt {
		return "Receipt OCR"
	}
	return "Manual entry"
}

// RenderMarkdown renders an analysis as a markdown report
func RenderMarkdown(a *Analysis) string {
	currency := a.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	money := func(cents int) string { return FormatMoney(currency, cents) }

	var b strings.Builder
	b.WriteString("# Grocery analysis\n\n")
	fmt.Fprintf(&b, "_%s · %s_\n\n", a.CreatedAt.Format("2006-01-02 15:04"), sourceLabel(a.Source))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Spent:** %s\n", money(a.Summary.TotalSpent))
	fmt.Fprintf(&b, "- **Essentials:** %s\n", money(a.Summary.EssentialsTotal))
	fmt.Fprintf(&b, "- **Non-Essentials:** %s\n\n", money(a.Summary.NonEssentialsTotal))

	if a.Summary.TotalSpent > 0 {
		b.WriteString("## Potential Savings\n\n")
		fmt.Fprintf(&b, "- Remove all non-essentials: save **%s** (%.1f%%)\n", money(a.Summary.SaveRemoveAll), a.Summary.SaveRemoveAllPercent)
		fmt.Fprintf(&b, "- Reduce non-essentials by 50%%: save **%s** (%.1f%%)\n\n", money(a.Summary.SaveHalf), a.Summary.SaveHalfPercent)
	}

	if len(a.Suggestions) > 0 {
		b.WriteString("## Suggestions\n\n")
		for _, s := range a.Suggestions {
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(s, "\n", " "))
		}
		b.WriteString("\n")
	}

	writeItemTable(&b, "Essentials", a.Essentials(), money)
	writeItemTable(&b, "Non-Essentials", a.NonEssentials(), money)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeItemTable(b *strings.Builder, title string, items []Item, money func(int) string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(items) == 0 {
		b.WriteString("_None_\n\n")
		return
	}
	b.WriteString("| Item | Quantity | Price |\n")
	b.WriteString("| --- | ---: | ---: |\n")
	for _, it := range items {
		fmt.Fprintf(b, "| %s | %s | %s |\n", escapeCell(it.Name), formatQuantity(it.Quantity), money(it.Price))
	}
	b.WriteString("\n")
}

// RenderHTML renders an analysis as a standalone HTML page
func RenderHTML(a *Analysis) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(RenderMarkdown(a)), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>Smart Grocery Saver - %s</title>\n", html.EscapeString(a.CreatedAt.Format("2006-01-02")))
	page.WriteString("<link rel=\"stylesheet\" href=\"/static/app.css\">\n</head>\n<body class=\"report\">\n<main>\n")
	page.Write(body.Bytes())
	page.WriteString("</main>\n</body>\n</html>\n")
	return page.Bytes(), nil
}
