package world

import (
	"fmt"
	"sort"
)

// Ledger tracks one kingdom's resource stocks. Every debit goes through a
// two-phase commit: Commit moves the cost from stock into a reserved bucket,
// and the caller later either Consumes the reservation (the resources leave
// the economy) or Releases it (full refund). Amounts never go negative; a
// multi-resource commit is all-or-nothing.
type Ledger struct {
	stock    map[string]int
	reserved map[string]int
}

func NewLedger(stock map[string]int) *Ledger {
	l := &Ledger{stock: map[string]int{}, reserved: map[string]int{}}
	for res, amt := range stock {
		if amt > 0 {
			l.stock[res] = amt
		}
	}
	return l
}

// Amount reports the spendable stock of one resource (reserves excluded).
func (l *Ledger) Amount(res string) int { return l.stock[res] }

// Reserved reports the amount of one resource currently held by reservations.
func (l *Ledger) Reserved(res string) int { return l.reserved[res] }

// Stocks returns a copy of the spendable stock map.
func (l *Ledger) Stocks() map[string]int {
	out := make(map[string]int, len(l.stock))
	for res, amt := range l.stock {
		out[res] = amt
	}
	return out
}

// ReservedStocks returns a copy of the reserved bucket.
func (l *Ledger) ReservedStocks() map[string]int {
	out := make(map[string]int, len(l.reserved))
	for res, amt := range l.reserved {
		out[res] = amt
	}
	return out
}

func (l *Ledger) CanAfford(cost map[string]int) bool {
	for res, amt := range cost {
		if l.stock[res] < amt {
			return false
		}
	}
	return true
}

// Reservation holds committed resources until consumed or released.
type Reservation struct {
	cost map[string]int
	done bool
}

// Cost returns a copy of the reserved amounts.
func (r *Reservation) Cost() map[string]int {
	out := make(map[string]int, len(r.cost))
	for res, amt := range r.cost {
		out[res] = amt
	}
	return out
}

// Commit atomically moves cost from stock to reserved. Returns nil if any
// single resource falls short; in that case nothing is debited.
func (l *Ledger) Commit(cost map[string]int) *Reservation {
	if !l.CanAfford(cost) {
		return nil
	}
	r := &Reservation{cost: map[string]int{}}
	for res, amt := range cost {
		if amt <= 0 {
			continue
		}
		l.stock[res] -= amt
		l.reserved[res] += amt
		r.cost[res] = amt
	}
	return r
}

// Release refunds a reservation in full. Safe to call once per reservation.
func (l *Ledger) Release(r *Reservation) {
	if r == nil || r.done {
		return
	}
	r.done = true
	for res, amt := range r.cost {
		l.reserved[res] -= amt
		l.stock[res] += amt
	}
}

// Consume finalizes a reservation, removing the resources from the economy.
func (l *Ledger) Consume(r *Reservation) {
	if r == nil || r.done {
		return
	}
	r.done = true
	for res, amt := range r.cost {
		l.reserved[res] -= amt
	}
}

// Deposit credits produced or gathered resources.
func (l *Ledger) Deposit(res string, amt int) {
	if amt <= 0 {
		return
	}
	l.stock[res] += amt
}

// Debit removes upkeep from spendable stock, clamping at zero when the stock
// cannot cover the full amount. Reserved amounts are never touched: upkeep
// starves before it breaks an open commitment.
func (l *Ledger) Debit(res string, amt int) {
	if amt <= 0 {
		return
	}
	if amt > l.stock[res] {
		amt = l.stock[res]
	}
	l.stock[res] -= amt
}

// check panics with a dump if any bucket went negative. Called once per tick
// per kingdom; a failure here is a programming error, not a player error.
func (l *Ledger) check(kingdom string) {
	for _, bucket := range []map[string]int{l.stock, l.reserved} {
		keys := make([]string, 0, len(bucket))
		for res := range bucket {
			keys = append(keys, res)
		}
		sort.Strings(keys)
		for _, res := range keys {
			if bucket[res] < 0 {
				panic(fmt.Sprintf("ledger %s: %s=%d stock=%v reserved=%v",
					kingdom, res, bucket[res], l.stock, l.reserved))
			}
		}
	}
}

// restoreLedger rebuilds a ledger from snapshot buckets.
func restoreLedger(stock, reserved map[string]int) *Ledger {
	l := NewLedger(stock)
	for res, amt := range reserved {
		if amt > 0 {
			l.reserved[res] = amt
		}
	}
	return l
}

// restoreReservation rebuilds an open reservation; the matching reserved
// amounts are restored separately by restoreLedger.
func restoreReservation(cost map[string]int) *Reservation {
	r := &Reservation{cost: map[string]int{}}
	for res, amt := range cost {
		if amt > 0 {
			r.cost[res] = amt
		}
	}
	return r
}
