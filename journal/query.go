package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

const orderColumns = `order_id, instrument_id, symbol, side, order_type, product_type, quantity, price, realized_pl, time, reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (OrderRecord, error) {
	var (
		rec OrderRecord
		pl  sql.NullFloat64
	)
	err := row.Scan(
		&rec.OrderID,
		&rec.InstrumentID,
		&rec.Symbol,
		&rec.Side,
		&rec.OrderType,
		&rec.ProductType,
		&rec.Quantity,
		&rec.Price,
		&pl,
		&rec.Time,
		&rec.Reason,
	)
	if err != nil {
		return OrderRecord{}, err
	}
	if pl.Valid {
		v := pl.Float64
		rec.RealizedPL = &v
	}
	return rec, nil
}

// GetOrder returns a single order by ID.
func (j *SQLite) GetOrder(orderID string) (OrderRecord, error) {
	row := j.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID)

	rec, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OrderRecord{}, fmt.Errorf("order %q: %w", orderID, ErrNotFound)
		}
		return OrderRecord{}, err
	}
	return rec, nil
}

// ListOrdersBetween returns orders executed within [start, end), oldest first.
func (j *SQLite) ListOrdersBetween(start, end time.Time) ([]OrderRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, order_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RealizedBetween sums realized P/L over orders executed within [start, end).
func (j *SQLite) RealizedBetween(start, end time.Time) (float64, error) {
	var total sql.NullFloat64
	err := j.db.QueryRow(`
		SELECT SUM(realized_pl) FROM orders
		WHERE time >= ? AND time < ? AND realized_pl IS NOT NULL`,
		start.UTC(), end.UTC()).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// ListEquityBetween returns equity snapshots within [start, end), oldest first.
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, invested, unrealized, equity
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(&rec.Time, &rec.Balance, &rec.Invested, &rec.Unrealized, &rec.Equity); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
