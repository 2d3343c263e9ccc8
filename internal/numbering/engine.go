// =============================================================================
// Rechnungstool - Numbering Engine
// =============================================================================
//
// Maps an invoice date to the next unused daily sequence number.
//
// CONTRACT:
//   Allocate(date) loads the ledger, takes last+1 (or 1 if the date is new),
//   persists the new value and only then returns the number. The number is
//   consumed even if rendering fails afterwards; numbers are never reused.
//
// FORMAT:
//   YYYY-MM-DD-NN, NN zero-padded to two digits and unbounded above 99.
//
// =============================================================================

package numbering

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

// Engine allocates invoice numbers from an injected Store.
type Engine struct {
	store Store
	log   zerolog.Logger
}

// NewEngine returns an engine backed by store.
func NewEngine(store Store, log zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Allocate consumes and returns the next number for date.
func (e *Engine) Allocate(ctx context.Context, date time.Time) (types.InvoiceNumber, error) {
	day := format.Day(date)
	key := day.Format(types.DateLayout)

	var n types.InvoiceNumber
	err := e.store.Update(ctx, func(l Ledger) error {
		next := l[key] + 1
		if next < 1 {
			next = 1
		}
		l[key] = next
		n = types.InvoiceNumber{Date: day, Sequence: next}
		return nil
	})
	if err != nil {
		return types.InvoiceNumber{}, fmt.Errorf("allocate invoice number for %s: %w", key, err)
	}

	e.log.Info().Str("number", n.String()).Msg("invoice number allocated")
	return n, nil
}

// Peek returns the number Allocate would hand out for date without consuming it.
func (e *Engine) Peek(ctx context.Context, date time.Time) (types.InvoiceNumber, error) {
	l, err := e.store.Snapshot(ctx)
	if err != nil {
		return types.InvoiceNumber{}, err
	}
	return peek(l, format.Day(date)), nil
}

func peek(l Ledger, day time.Time) types.InvoiceNumber {
	next := l[day.Format(types.DateLayout)] + 1
	if next < 1 {
		next = 1
	}
	return types.InvoiceNumber{Date: day, Sequence: next}
}

// Status summarizes the ledger for the numbers command.
type Status struct {
	// Last is the most recent number issued, nil if the ledger is empty.
	Last *types.InvoiceNumber

	// NextToday is the number the next invoice dated today would get.
	NextToday types.InvoiceNumber

	// IssuedToday counts invoices dated today.
	IssuedToday int

	// Days is the number of dates present in the ledger.
	Days int
}

// Status reports the ledger state relative to today.
func (e *Engine) Status(ctx context.Context, today time.Time) (Status, error) {
	l, err := e.store.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}
	day := format.Day(today)

	st := Status{
		NextToday:   peek(l, day),
		IssuedToday: l[day.Format(types.DateLayout)],
		Days:        len(l),
	}

	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i := len(keys) - 1; i >= 0; i-- {
		d, err := time.ParseInLocation(types.DateLayout, keys[i], time.UTC)
		if err != nil || l[keys[i]] < 1 {
			continue
		}
		st.Last = &types.InvoiceNumber{Date: d, Sequence: l[keys[i]]}
		break
	}
	return st, nil
}
