package journal

const Schema = `
CREATE TABLE IF NOT EXISTS order_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time DATETIME NOT NULL,
	ref TEXT NOT NULL,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	price REAL NOT NULL,
	size REAL NOT NULL,
	filled REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_events_ref ON order_events(ref);

CREATE TABLE IF NOT EXISTS prices (
	time DATETIME NOT NULL,
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	price REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prices_symbol_time ON prices(symbol, time);
`
