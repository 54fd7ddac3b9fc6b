package scanning

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	listSeparator = regexp.MustCompile(`\s+[-–—|]\s+|\s*[:,]\s+|\t+`)
	trailingPrice = regexp.MustCompile(`^(.+?)\s+((?:Rs\.?\s*|[$€£₹])?\d[\d,]*(?:\.\d+)?)$`)
	headerLine    = regexp.MustCompile(`(?i)^item\s*[-–—|:]`)
	totalsLine    = regexp.MustCompile(`(?i)^(sub\s*-?\s*total|total|grand total|tax|vat|gst|change|cash|card|balance|amount due|discount)\b`)
)

// nonEssentialKeywords are matched before essentialKeywords so "chocolate milk" is a treat
var nonEssentialKeywords = []string{
	"chips", "crisps", "cola", "coke", "pepsi", "soda", "soft drink", "energy drink",
	"candy", "chocolate", "sweets", "gum", "cookie", "biscuit", "cake", "pastry",
	"donut", "ice cream", "dessert", "popcorn", "nachos", "snack",
	"beer", "wine", "vodka", "whisky", "whiskey", "rum", "liquor", "cigarette", "tobacco",
	"gift", "toy", "magazine", "lottery",
}

var essentialKeywords = []string{
	"milk", "bread", "rice", "flour", "atta", "egg", "dal", "lentil", "bean", "pulse",
	"oil", "salt", "sugar", "tea", "coffee", "butter", "cheese", "yogurt", "curd",
	"vegetable", "fruit", "apple", "banana", "onion", "potato", "tomato", "carrot", "spinach",
	"chicken", "fish", "meat", "pasta", "oats", "cereal", "water",
	"soap", "detergent", "toothpaste", "shampoo", "toilet", "diaper", "medicine",
}

var (
	nonEssentialPatterns = keywordPatterns(nonEssentialKeywords)
	essentialPatterns    = keywordPatterns(essentialKeywords)
)

// keywordPatterns matches each keyword as whole words, allowing a plural ending
func keywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`(s|es)?\b`))
	}
	return patterns
}

func matchesAny(name string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// Rules implements the Classifier interface without a language model. Lines
// are parsed as "Item - Quantity - Price" or "Item - Price" and classified by
// keyword; unknown items count as essential.
type Rules struct{}

// NewRules creates a keyword-based classifier
func NewRules() *Rules {
	return &Rules{}
}

// ParseList parses a grocery list, skipping header and unparseable lines
func ParseList(text string) []ItemData {
	var items []ItemData
	for _, line := range strings.Split(text, "\n") {
		if item, ok := parseListLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseListLine(line string) (ItemData, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*• ")
	if line == "" || headerLine.MatchString(line) || totalsLine.MatchString(line) {
		return ItemData{}, false
	}

	fields := listSeparator.Split(line, -1)
	switch {
	case len(fields) >= 3:
		n := len(fields)
		price, ok := parseAmount(fields[n-1])
		if !ok {
			return ItemData{}, false
		}
		if qty, ok := parseQuantity(fields[n-2]); ok {
			return newItem(strings.Join(fields[:n-2], " - "), qty, price)
		}
		return newItem(strings.Join(fields[:n-1], " - "), 1, price)
	case len(fields) == 2:
		price, ok := parseAmount(fields[1])
		if !ok {
			return ItemData{}, false
		}
		return newItem(fields[0], 1, price)
	}

	m := trailingPrice.FindStringSubmatch(line)
	if m == nil {
		return ItemData{}, false
	}
	price, ok := parseAmount(m[2])
	if !ok {
		return ItemData{}, false
	}
	return newItem(m[1], 1, price)
}

func parseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSpace(strings.Trim(s, "x"))
	v, ok := parseAmount(s)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

func newItem(name string, qty, price float64) (ItemData, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ItemData{}, false
	}
	return ItemData{Item: name, Quantity: qty, Price: price}, true
}

// IsEssential reports whether an item name looks like a staple
func IsEssential(name string) bool {
	return !matchesAny(name, nonEssentialPatterns)
}

// CleanText keeps only lines that parse as items and rewrites them canonically
func (r *Rules) CleanText(ctx context.Context, rawText string) (string, error) {
	items := ParseList(rawText)
	if len(items) == 0 {
		return "", ErrNoText
	}
	var b strings.Builder
	b.WriteString("Item - Quantity - Price\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%s - %s - %s\n", it.Item, formatNumber(it.Quantity), formatNumber(it.Price))
	}
	return strings.TrimSpace(b.String()), nil
}

// Classify splits the parsed list by keyword and derives suggestions
func (r *Rules) Classify(ctx context.Context, groceryText string) (*Classification, error) {
	c := &Classification{
		Essentials:    []ItemData{},
		NonEssentials: []ItemData{},
	}
	var nonTotal float64
	var staples []string
	for _, it := range ParseList(groceryText) {
		if IsEssential(it.Item) {
			c.Essentials = append(c.Essentials, it)
			if matchesAny(it.Item, essentialPatterns) {
				staples = append(staples, it.Item)
			}
			continue
		}
		c.NonEssentials = append(c.NonEssentials, it)
		nonTotal += it.Price
	}
	c.Suggestions = suggestions(c.NonEssentials, nonTotal, staples)
	return c, nil
}

func suggestions(nonEssentials []ItemData, nonTotal float64, staples []string) []string {
	if len(nonEssentials) == 0 {
		return []string{"Your list is all essentials. Compare unit prices and prefer store brands to save further."}
	}

	names := make([]string, 0, len(nonEssentials))
	for _, it := range nonEssentials {
		names = append(names, it.Item)
	}
	out := []string{
		fmt.Sprintf("Skipping %s would save %.2f.", strings.Join(names, ", "), nonTotal),
		fmt.Sprintf("Halving non-essential purchases would still save %.2f.", nonTotal/2),
	}
	if len(staples) > 0 {
		out = append(out, fmt.Sprintf("Buy staples like %s in bulk or on offer to lower the essentials bill.", staples[0]))
	}
	return out
}

func formatNumber(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Close is a no-op
func (r *Rules) Close() error {
	return nil
}
