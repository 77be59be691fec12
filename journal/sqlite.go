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

func (j *SQLite) RecordTransition(e OrderEvent) error {
	_, err := j.db.Exec(`
		INSERT INTO order_events
		(time, ref, order_id, symbol, side, from_state, to_state, price, size, filled, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Ref, e.OrderID, e.Symbol, e.Side,
		e.From, e.To, e.Price, e.Size, e.Filled, e.Reason,
	)
	return err
}

func (j *SQLite) RecordPrice(p PriceSample) error {
	_, err := j.db.Exec(`
		INSERT INTO prices
		(time, exchange, symbol, price)
		VALUES (?, ?, ?, ?)`,
		p.Time.UTC(), p.Exchange, p.Symbol, p.Price,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
