package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatOrderOrg renders an OrderRecord as an Org-mode block. Structured
// facts go in the PROPERTIES drawer; the Notes heading is left for the trader.
func FormatOrderOrg(o OrderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %d %s @ %.2f (%s)\n", o.Side, o.Quantity, o.Symbol, o.Price, shortID(o.OrderID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ORDER_ID: %s\n", o.OrderID)
	fmt.Fprintf(&b, ":INSTRUMENT_ID: %s\n", o.InstrumentID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", o.Symbol)
	fmt.Fprintf(&b, ":SIDE: %s\n", o.Side)
	fmt.Fprintf(&b, ":ORDER_TYPE: %s\n", o.OrderType)
	fmt.Fprintf(&b, ":PRODUCT: %s\n", o.ProductType)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", o.Quantity)
	fmt.Fprintf(&b, ":PRICE: %.2f\n", o.Price)
	if o.RealizedPL != nil {
		fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", *o.RealizedPL)
	}
	fmt.Fprintf(&b, ":TIME: %s\n", o.Time.UTC().Format(time.RFC3339))
	if o.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", o.Reason)
	}
	b.WriteString(":END:\n")
	b.WriteString("\n*** Notes\n- \n")
	return b.String()
}

// FormatOrdersOrg renders multiple orders separated by blank lines.
func FormatOrdersOrg(orders []OrderRecord) string {
	var b strings.Builder
	for i, o := range orders {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatOrderOrg(o))
	}
	return b.String()
}

// shortID keeps the tail of an id; the head of a ULID is its timestamp and
// repeats across orders placed together.
func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
