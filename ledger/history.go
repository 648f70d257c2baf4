package ledger

import (
	"sort"
	"time"
)

// DayOrders is the order history of one calendar day.
type DayOrders struct {
	Day    string  `json:"day"`
	Orders []Order `json:"orders"`
}

// GroupOrdersByDay buckets orders by calendar day in loc, newest day first.
// Within a day the input order is kept.
func GroupOrdersByDay(orders []Order, loc *time.Location) []DayOrders {
	if loc == nil {
		loc = time.Local
	}

	var out []DayOrders
	index := map[string]int{}
	for _, o := range orders {
		day := o.Timestamp.In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, DayOrders{Day: day})
		}
		out[i].Orders = append(out[i].Orders, o)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}
