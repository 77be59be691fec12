package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

type CSV struct {
	mu     sync.Mutex
	events *csv.Writer
	prices *csv.Writer
	ef, pf *os.File
}

func NewCSV(eventsPath, pricesPath string) (*CSV, error) {
	ef, err := os.Create(eventsPath)
	if err != nil {
		return nil, err
	}
	pf, err := os.Create(pricesPath)
	if err != nil {
		_ = ef.Close()
		return nil, err
	}

	ew := csv.NewWriter(ef)
	pw := csv.NewWriter(pf)

	if err := ew.Write([]string{"time", "ref", "order_id", "symbol", "side", "from", "to", "price", "size", "filled", "reason"}); err != nil {
		return nil, err
	}
	if err := pw.Write([]string{"time", "exchange", "symbol", "price"}); err != nil {
		return nil, err
	}

	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}
	pw.Flush()
	if err := pw.Error(); err != nil {
		return nil, err
	}

	return &CSV{events: ew, prices: pw, ef: ef, pf: pf}, nil
}

func (j *CSV) RecordTransition(e OrderEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.events.Write([]string{
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Ref,
		e.OrderID,
		e.Symbol,
		e.Side,
		e.From,
		e.To,
		f(e.Price),
		f(e.Size),
		f(e.Filled),
		e.Reason,
	})
	if err != nil {
		return err
	}
	j.events.Flush()
	return j.events.Error()
}

func (j *CSV) RecordPrice(p PriceSample) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.prices.Write([]string{
		p.Time.UTC().Format(time.RFC3339Nano),
		p.Exchange,
		p.Symbol,
		f(p.Price),
	})
	if err != nil {
		return err
	}
	j.prices.Flush()
	return j.prices.Error()
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events.Flush()
	if err := j.events.Error(); err != nil {
		return err
	}
	j.prices.Flush()
	if err := j.prices.Error(); err != nil {
		return err
	}

	if err := j.ef.Close(); err != nil {
		return err
	}
	return j.pf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
