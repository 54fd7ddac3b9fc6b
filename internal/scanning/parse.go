package scanning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// currencyMarks are stripped from the front and back of prices before parsing
var currencyMarks = []string{"Rs.", "Rs", "rs.", "rs", "INR", "USD", "EUR", "₹", "$", "€", "£"}

// thousandsGrouping matches western "1,200,000" and lakh "1,20,000" grouping
var thousandsGrouping = regexp.MustCompile(`^\d{1,3}(,\d{2,3})*,\d{3}$`)

// rawItem mirrors ItemData but keeps numbers undecoded so models returning
// strings like "Rs. 40" or "2" still parse
type rawItem struct {
	Item     string          `json:"item"`
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
	Price    json.RawMessage `json:"price"`
}

type rawClassification struct {
	Essentials    []rawItem `json:"essentials"`
	NonEssentials []rawItem `json:"non_essentials"`
	Suggestions   []string  `json:"suggestions"`
}

// stripFences removes surrounding whitespace and markdown code fences
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```text")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

// cleanCompletion normalizes a free-text model reply
func cleanCompletion(text string) string {
	return stripFences(text)
}

// parseClassificationJSON parses the classification reply from a language model
func parseClassificationJSON(text string) (*Classification, error) {
	raw := text
	text = stripFences(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, &InvalidJSONError{Raw: raw, Err: fmt.Errorf("no JSON object found in response")}
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, &InvalidJSONError{Raw: raw, Err: fmt.Errorf("invalid JSON object in response")}
	}
	text = text[startIdx : endIdx+1]

	var rc rawClassification
	if err := json.Unmarshal([]byte(text), &rc); err != nil {
		return nil, &InvalidJSONError{Raw: raw, Err: fmt.Errorf("unmarshaling json: %w", err)}
	}

	c := &Classification{
		Essentials:    convertItems(rc.Essentials),
		NonEssentials: convertItems(rc.NonEssentials),
		Suggestions:   make([]string, 0, len(rc.Suggestions)),
	}
	for _, s := range rc.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			c.Suggestions = append(c.Suggestions, s)
		}
	}
	return c, nil
}

func convertItems(in []rawItem) []ItemData {
	out := make([]ItemData, 0, len(in))
	for _, ri := range in {
		name := strings.TrimSpace(ri.Item)
		if name == "" {
			name = strings.TrimSpace(ri.Name)
		}
		if name == "" {
			continue
		}
		qty := decodeNumber(ri.Quantity)
		if qty <= 0 {
			qty = 1
		}
		out = append(out, ItemData{
			Item:     name,
			Quantity: qty,
			Price:    decodeNumber(ri.Price),
		})
	}
	return out
}

// decodeNumber accepts a JSON number or a numeric string and returns 0 for anything else
func decodeNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := parseAmount(s); ok {
			return v
		}
	}
	return 0
}

// parseAmount parses a price such as "40", "Rs. 40.50", "$3" or "1,299.00"
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, mark := range currencyMarks {
		s = strings.TrimSpace(strings.TrimPrefix(s, mark))
		s = strings.TrimSpace(strings.TrimSuffix(s, mark))
	}
	if s == "" {
		return 0, false
	}
	// "." is the decimal mark; a comma is a thousands separator unless it
	// cannot be one, as in "2,50"
	if strings.Contains(s, ".") || thousandsGrouping.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
