package grocery

import "time"

// Category is the budgeting class of a grocery item
type Category string

const (
	CategoryEssential    Category = "essential"
	CategoryNonEssential Category = "non_essential"
)

// Source records where the analyzed list came from
type Source string

const (
	SourceText    Source = "text"
	SourceReceipt Source = "receipt"
)

// Item is a single classified grocery line
type Item struct {
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity"`
	Price    int      `json:"price"` // Line total in cents
	Category Category `json:"category"`
}

// Summary holds spending totals and potential savings, all amounts in cents
type Summary struct {
	TotalSpent           int     `json:"total_spent"`
	EssentialsTotal      int     `json:"essentials_total"`
	NonEssentialsTotal   int     `json:"non_essentials_total"`
	SaveRemoveAll        int     `json:"save_remove_all"`
	SaveHalf             int     `json:"save_half"`
	SaveRemoveAllPercent float64 `json:"save_remove_all_percent"`
	SaveHalfPercent      float64 `json:"save_half_percent"`
}

// Scan is the OCR result for one uploaded receipt
type Scan struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	RawText     string    `json:"raw_text"`
	CleanedText string    `json:"cleaned_text"`
	AnalysisID  string    `json:"analysis_id,omitempty"` // ID of the analysis made from this scan
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Analysis is a classified grocery list with its summary and suggestions
type Analysis struct {
	ID          string    `json:"id"`
	Source      Source    `json:"source"`
	ScanID      string    `json:"scan_id,omitempty"`
	Input       string    `json:"input"`
	Items       []Item    `json:"items"`
	Suggestions []string  `json:"suggestions"`
	Summary     Summary   `json:"summary"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Essentials returns the essential items in list order
func (a *Analysis) Essentials() []Item {
	return a.itemsIn(CategoryEssential)
}

// NonEssentials returns the non-essential items in list order
func (a *Analysis) NonEssentials() []Item {
	return a.itemsIn(CategoryNonEssential)
}

func (a *Analysis) itemsIn(c Category) []Item {
	items := make([]Item, 0, len(a.Items))
	for _, it := range a.Items {
		if it.Category == c {
			items = append(items, it)
		}
	}
	return items
}

// History aggregates all stored analyses, amounts in cents
type History struct {
	Count              int `json:"count"`
	TotalSpent         int `json:"total_spent"`
	EssentialsTotal    int `json:"essentials_total"`
	NonEssentialsTotal int `json:"non_essentials_total"`
}
