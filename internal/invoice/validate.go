package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// grossTolerance is the allowed drift between the declared gross total and
// the sum of line item gross totals before a reconciliation warning is raised
const grossTolerance = 0.01

var nonDigits = regexp.MustCompile(`\D`)

// Date formats accepted from the extraction model, tried in order
var dateLayouts = []string{
	"2006-01-02", // ISO
	"02.01.2006", // Polish standard
	"02/01/2006",
}

// SchemaError is a fatal validation failure naming the offending fields
type SchemaError struct {
	Fields  []string
	Message string
}

func (e *SchemaError) Error() string {
	return e.Message
}

// AsSchemaError extracts a SchemaError from an error chain
func AsSchemaError(err error) (*SchemaError, bool) {
	var se *SchemaError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Validate decodes the candidate tree returned by the extraction model into
// a normalized Record, or fails with a SchemaError naming every field that
// violates the schema.
//
// Reconciliation between the declared gross total and the sum of item gross
// totals is a soft invariant: extraction is probabilistic, so a mismatch is
// recorded as a warning on the record and never blocks validation.
func Validate(candidate map[string]any) (*Record, error) {
	v := &validator{}

	record := &Record{
		InvoiceNumber: v.invoiceNumber(candidate["invoice_number"]),
		IssueDate:     v.issueDate(candidate["issue_date"]),
		SellerName:    v.requiredString(candidate["seller_name"], "seller_name"),
		SellerNIP:     v.nip(candidate["seller_nip"]),
		BuyerName:     v.requiredString(candidate["buyer_name"], "buyer_name"),
		Items:         v.items(candidate["items"]),
		TotalNetSum:   v.nonNegativeFloat(candidate["total_net_sum"], "total_net_sum"),
		TotalGrossSum: v.nonNegativeFloat(candidate["total_gross_sum"], "total_gross_sum"),
		Currency:      v.currency(candidate["currency"]),
	}

	if len(v.fields) > 0 {
		return nil, &SchemaError{
			Fields:  v.fields,
			Message: fmt.Sprintf("invoice failed schema validation: %s", strings.Join(v.reasons, "; ")),
		}
	}

	if diff := math.Abs(record.ItemGrossSum() - record.TotalGrossSum); diff > grossTolerance {
		record.Warnings = append(record.Warnings, fmt.Sprintf(
			"item gross totals sum to %.2f but declared gross total is %.2f",
			record.ItemGrossSum(), record.TotalGrossSum))
	}

	return record, nil
}

// NormalizeNIP strips every non-digit character from a Polish tax ID. The
// result must be exactly 10 digits.
func NormalizeNIP(nip string) (string, error) {
	digits := nonDigits.ReplaceAllString(nip, "")
	if len(digits) != 10 {
		return "", fmt.Errorf("NIP must contain exactly 10 digits, got %d", len(digits))
	}
	return digits, nil
}

// ParseDate canonicalizes the common invoice date formats (ISO, DD.MM.YYYY,
// DD/MM/YYYY) to a calendar date
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("cannot parse date %q, supported formats: YYYY-MM-DD, DD.MM.YYYY, DD/MM/YYYY", s)
}

// NormalizeInvoiceNumber removes all whitespace from an invoice number
func NormalizeInvoiceNumber(number string) (string, error) {
	normalized := strings.Join(strings.Fields(number), "")
	if normalized == "" {
		return "", fmt.Errorf("invoice number must not be empty")
	}
	return normalized, nil
}

// validator accumulates field-level failures so one pass reports every
// offending field instead of stopping at the first
type validator struct {
	fields  []string
	reasons []string
}

func (v *validator) fail(field, reason string) {
	v.fields = append(v.fields, field)
	v.reasons = append(v.reasons, field+": "+reason)
}

func (v *validator) invoiceNumber(raw any) string {
	s, ok := asString(raw)
	if !ok {
		v.fail("invoice_number", "missing or not a string")
		return ""
	}
	normalized, err := NormalizeInvoiceNumber(s)
	if err != nil {
		v.fail("invoice_number", err.Error())
		return ""
	}
	return normalized
}

func (v *validator) issueDate(raw any) Date {
	s, ok := asString(raw)
	if !ok {
		v.fail("issue_date", "missing or not a string")
		return Date{}
	}
	d, err := ParseDate(s)
	if err != nil {
		v.fail("issue_date", err.Error())
		return Date{}
	}
	return d
}

func (v *validator) nip(raw any) string {
	s, ok := asString(raw)
	if !ok {
		v.fail("seller_nip", "missing or not a string")
		return ""
	}
	digits, err := NormalizeNIP(s)
	if err != nil {
		v.fail("seller_nip", err.Error())
		return ""
	}
	return digits
}

func (v *validator) requiredString(raw any, field string) string {
	s, ok := asString(raw)
	if !ok || strings.TrimSpace(s) == "" {
		v.fail(field, "must not be empty")
		return ""
	}
	return strings.TrimSpace(s)
}

func (v *validator) currency(raw any) string {
	s, ok := asString(raw)
	if !ok || strings.TrimSpace(s) == "" {
		// The original system issues PLN invoices unless told otherwise
		return "PLN"
	}
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		v.fail("currency", "must be a 3-letter ISO code")
		return ""
	}
	return code
}

func (v *validator) nonNegativeFloat(raw any, field string) float64 {
	f, ok := asFloat(raw)
	if !ok {
		v.fail(field, "missing or not a number")
		return 0
	}
	if f < 0 {
		v.fail(field, "must not be negative")
		return 0
	}
	return f
}

func (v *validator) items(raw any) []Item {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		v.fail("items", "must contain at least one entry")
		return nil
	}

	items := make([]Item, 0, len(list))
	for i, entry := range list {
		tree, ok := entry.(map[string]any)
		if !ok {
			v.fail(fmt.Sprintf("items[%d]", i), "not an object")
			continue
		}
		items = append(items, v.item(tree, i))
	}
	return items
}

func (v *validator) item(tree map[string]any, index int) Item {
	field := func(name string) string {
		return fmt.Sprintf("items[%d].%s", index, name)
	}

	item := Item{Quantity: 1.0}

	desc, ok := asString(tree["description"])
	if !ok || strings.TrimSpace(desc) == "" {
		v.fail(field("description"), "must not be empty")
	} else {
		item.Description = strings.TrimSpace(desc)
	}

	if raw, present := tree["quantity"]; present && raw != nil {
		q, ok := asFloat(raw)
		if !ok || q <= 0 {
			v.fail(field("quantity"), "must be a positive number")
		} else {
			item.Quantity = q
		}
	}

	if f, ok := asFloat(tree["unit_price_net"]); ok && f >= 0 {
		item.UnitPriceNet = f
	} else {
		v.fail(field("unit_price_net"), "must be a non-negative number")
	}

	if n, ok := asInt(tree["vat_rate"]); ok && n >= 0 && n <= 100 {
		item.VATRate = n
	} else {
		v.fail(field("vat_rate"), "must be an integer between 0 and 100")
	}

	if f, ok := asFloat(tree["total_gross"]); ok && f >= 0 {
		item.TotalGross = f
	} else {
		v.fail(field("total_gross"), "must be a non-negative number")
	}

	if c, ok := asString(tree["category"]); ok {
		item.Category = strings.TrimSpace(c)
	}

	return item
}

// asString tolerates nil and non-string drift from the provider
func asString(raw any) (string, bool) {
	s, ok := raw.(string)
	return s, ok
}

// asFloat coerces the numeric shapes a vision model emits: json.Number,
// float64, int, or a string with a dot or comma decimal separator
func asFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", ".")
		s = strings.ReplaceAll(s, " ", "")
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asInt coerces integral values, rejecting fractions
func asInt(raw any) (int, bool) {
	f, ok := asFloat(raw)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
