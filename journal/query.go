package journal

import (
	"time"
)

// ListOrderEvents returns the events of the order with local reference
// ref, oldest first.
func (j *SQLite) ListOrderEvents(ref string) ([]OrderEvent, error) {
	rows, err := j.db.Query(`
		SELECT time, ref, order_id, symbol, side, from_state, to_state, price, size, filled, reason
		FROM order_events
		WHERE ref = ?
		ORDER BY id ASC`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderEvent
	for rows.Next() {
		var e OrderEvent
		if err := rows.Scan(
			&e.Time,
			&e.Ref,
			&e.OrderID,
			&e.Symbol,
			&e.Side,
			&e.From,
			&e.To,
			&e.Price,
			&e.Size,
			&e.Filled,
			&e.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPricesBetween returns samples for symbol within [start, end).
func (j *SQLite) ListPricesBetween(symbol string, start, end time.Time) ([]PriceSample, error) {
	rows, err := j.db.Query(`
		SELECT time, exchange, symbol, price
		FROM prices
		WHERE symbol = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, symbol, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceSample
	for rows.Next() {
		var p PriceSample
		if err := rows.Scan(&p.Time, &p.Exchange, &p.Symbol, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
