package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	var pl sql.NullFloat64
	if o.RealizedPL != nil {
		pl = sql.NullFloat64{Float64: *o.RealizedPL, Valid: true}
	}

	_, err := j.db.Exec(`
		INSERT INTO orders
		(order_id, instrument_id, symbol, side, order_type, product_type, quantity, price, realized_pl, time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.InstrumentID, o.Symbol, o.Side, o.OrderType, o.ProductType,
		o.Quantity, o.Price, pl, o.Time.UTC(), o.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, invested, unrealized, equity)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Balance, e.Invested, e.Unrealized, e.Equity,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
