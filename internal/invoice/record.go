package invoice

import "time"

// isoDateLayout is the canonical wire format for invoice dates
const isoDateLayout = "2006-01-02"

// Date is a calendar date marshaled as ISO 8601 (YYYY-MM-DD)
type Date struct {
	time.Time
}

// NewDate creates a Date for the given calendar day
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON writes the date as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(isoDateLayout) + `"`), nil
}

// UnmarshalJSON reads a "YYYY-MM-DD" string
func (d *Date) UnmarshalJSON(data []byte) error {
	t, err := time.Parse(`"`+isoDateLayout+`"`, string(data))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// String returns the ISO 8601 form
func (d Date) String() string {
	return d.Format(isoDateLayout)
}

// Item is a single line entry on an invoice
type Item struct {
	Description  string  `json:"description"`
	Quantity     float64 `json:"quantity"`
	UnitPriceNet float64 `json:"unit_price_net"`
	VATRate      int     `json:"vat_rate"`
	TotalGross   float64 `json:"total_gross"`
	Category     string  `json:"category,omitempty"`
}

// Record is a validated, normalized invoice ready for export. Warnings carry
// non-fatal reconciliation findings surfaced for human review.
type Record struct {
	ID            string    `json:"id,omitempty"`
	InvoiceNumber string    `json:"invoice_number"`
	IssueDate     Date      `json:"issue_date"`
	SellerName    string    `json:"seller_name"`
	SellerNIP     string    `json:"seller_nip"`
	BuyerName     string    `json:"buyer_name"`
	Items         []Item    `json:"items"`
	TotalNetSum   float64   `json:"total_net_sum"`
	TotalGrossSum float64   `json:"total_gross_sum"`
	Currency      string    `json:"currency"`
	Warnings      []string  `json:"warnings,omitempty"`
	Filename      string    `json:"filename,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ItemGrossSum returns the sum of all line item gross totals
func (r *Record) ItemGrossSum() float64 {
	var sum float64
	for _, item := range r.Items {
		sum += item.TotalGross
	}
	return sum
}
