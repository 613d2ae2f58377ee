package scanning

import (
	"context"

	"github.com/fakturai/fakturai/internal/document"
)

// invoiceExtractionPrompt is the shared prompt used by all LLM providers for
// extracting structured invoice data
const invoiceExtractionPrompt = `You are an expert invoice data extraction specialist. Analyze the provided invoice image and extract structured data.

Return a JSON object with this EXACT structure (no markdown formatting, just raw JSON):

{
    "invoice_number": "string (normalized, no spaces: FV001/2025)",
    "issue_date": "YYYY-MM-DD (ISO format)",
    "seller_name": "string (full company name)",
    "seller_nip": "string (10 digits only, remove PL prefix, dashes, spaces)",
    "buyer_name": "string (full company name)",
    "items": [
        {
            "description": "string (product/service name)",
            "quantity": float (number of items),
            "unit_price_net": float (price per unit excluding VAT),
            "vat_rate": int (VAT percentage: 0, 5, 8, 23, etc.),
            "total_gross": float (total including VAT for this item),
            "category": "string or null (inferred category: Paliwo, Biuro, IT, Transport, etc.)"
        }
    ],
    "total_net_sum": float (sum of all items net),
    "total_gross_sum": float (total amount to pay),
    "currency": "string (ISO code: PLN, EUR, USD)"
}

CRITICAL RULES:
1. **NIP Format**: Must be exactly 10 digits. Remove "PL" prefix, dashes, spaces, dots.
   Example: "PL 123-456-78-90" -> "1234567890"

2. **Date Format**: Always use YYYY-MM-DD format.
   Example: "15.01.2025" -> "2025-01-15"

3. **Invoice Number**: Remove all spaces.
   Example: "FV 001 / 2025" -> "FV001/2025"

4. **Categories**: Intelligently infer category based on item description:
   - Fuel/Gas: "Paliwo"
   - Office supplies: "Biuro"
   - IT equipment/software: "IT"
   - Transportation: "Transport"
   - Food/Catering: "Catering"
   - Other: "Inne"

5. **Numbers**: All monetary values must be floats, VAT rate must be integer.

6. **JSON Only**: Return ONLY the JSON object. No explanations, no markdown code blocks.

7. **Items Array**: Must contain at least one item. Extract all line items from the invoice table.

8. **Accuracy**: Double-check calculations. Verify total_gross_sum matches the "Do zaplaty" or "Razem" value.

Extract the data now.`

// Extractor defines the interface for vision-model invoice extraction.
// The result is a loosely-typed candidate tree; strict decoding happens in
// the invoice validator.
type Extractor interface {
	// ExtractInvoice analyzes one or more page images and returns the
	// candidate invoice record as returned by the model
	ExtractInvoice(ctx context.Context, images []document.EncodedImage) (map[string]any, error)
	// Close closes the extractor and releases resources
	Close() error
}
