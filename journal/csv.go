package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	orders *csv.Writer
	equity *csv.Writer
	of, ef *os.File
}

var (
	orderHeader  = []string{"order_id", "instrument_id", "symbol", "side", "order_type", "product_type", "quantity", "price", "realized_pl", "time", "reason"}
	equityHeader = []string{"time", "balance", "invested", "unrealized", "equity"}
)

// NewCSV opens both files for appending. Headers are written only to files
// that are new or empty, so earlier rows survive a reopen.
func NewCSV(ordersPath, equityPath string) (*CSVJournal, error) {
	of, err := openAppend(ordersPath)
	if err != nil {
		return nil, err
	}
	ef, err := openAppend(equityPath)
	if err != nil {
		_ = of.Close()
		return nil, err
	}

	j := &CSVJournal{
		orders: csv.NewWriter(of),
		equity: csv.NewWriter(ef),
		of:     of,
		ef:     ef,
	}
	if err := j.writeHeader(of, j.orders, orderHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.writeHeader(ef, j.equity, equityHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (j *CSVJournal) writeHeader(file *os.File, w *csv.Writer, header []string) error {
	fi, err := file.Stat()
	if err != nil {
		return err
	}
	if fi.Size() > 0 {
		return nil
	}
	return j.write(w, header)
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordOrder(o OrderRecord) error {
	pl := ""
	if o.RealizedPL != nil {
		pl = f(*o.RealizedPL)
	}
	return j.write(j.orders, []string{
		o.OrderID,
		o.InstrumentID,
		o.Symbol,
		o.Side,
		o.OrderType,
		o.ProductType,
		strconv.FormatInt(o.Quantity, 10),
		f(o.Price),
		pl,
		o.Time.UTC().Format(time.RFC3339Nano),
		o.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339Nano),
		f(e.Balance),
		f(e.Invested),
		f(e.Unrealized),
		f(e.Equity),
	})
}

func (j *CSVJournal) Close() error {
	j.orders.Flush()
	if err := j.orders.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.of.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
