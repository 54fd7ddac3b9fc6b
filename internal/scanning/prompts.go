package scanning

import "fmt"

const (
	classifySystemPrompt   = "You are a helpful AI that outputs JSON only."
	cleanSystemPrompt      = "You are a helpful assistant that formats receipt text."
	transcribeSystemPrompt = "You are an expert at reading receipts. You must carefully read all text in images and copy it exactly."
)

// classifyPrompt is the shared prompt used by all LLM providers for classifying a grocery list
const classifyPrompt = `You are a budgeting assistant. The user will give you a grocery list with items, quantities, and prices.
Classify each item into 'Essential' or 'Non-Essential'.
Return the result as JSON like this:
{
    "essentials": [{"item": "Milk", "quantity": 1, "price": 3}],
    "non_essentials": [{"item": "Chips", "quantity": 1, "price": 4}],
    "suggestions": ["Suggestion 1", "Suggestion 2"]
}

Important:
- "price" is the total price of the line as a number (not a string)
- "quantity" defaults to 1 if the list does not say
- Give two to four short, practical money-saving suggestions
- Do not include any text before or after the JSON
- Do not use markdown code blocks

Here is the list:
%s`

// cleanPrompt asks the model to reduce raw OCR output to purchased items
const cleanPrompt = `You are a grocery assistant. The user provides a raw receipt text:
%s

Extract only the purchased items with their quantity (default 1 if not present) and total price.
Ignore any other irrelevant text (store info, barcodes, date, etc.).
Return the result as a formatted text list like this (human readable):
Item - Quantity - Price
Milk - 1 - 3
Chips - 2 - 5`

// transcribePrompt is used by vision models acting as an OCR reader
const transcribePrompt = `Read all text on this receipt image and return it exactly as printed, one printed line per output line.

Important:
- Keep item names, quantities and prices on the same line as they appear
- Do not summarize, translate or correct anything
- Do not add any commentary before or after the text
- Do not use markdown code blocks`

func buildClassifyPrompt(groceryText string) string {
	return fmt.Sprintf(classifyPrompt, groceryText)
}

func buildCleanPrompt(rawText string) string {
	return fmt.Sprintf(cleanPrompt, rawText)
}
