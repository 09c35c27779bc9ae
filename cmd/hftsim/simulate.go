package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/0x5487/hftcore"
)

// simulator drives random order flow against one book. It must run on the
// goroutine that owns the book.
type simulator struct {
	cfg  *Config
	book *hftcore.OrderBook
	rng  *rand.Rand

	nextID uint64
	ids    []uint64
	pos    map[uint64]int

	adds, cancels, modifies, trades, fills, rejects int
}

func newSimulator(cfg *Config, book *hftcore.OrderBook) *simulator {
	return &simulator{
		cfg:    cfg,
		book:   book,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		nextID: 1,
		ids:    make([]uint64, 0, cfg.OrderCapacity),
		pos:    make(map[uint64]int, cfg.OrderCapacity),
	}
}

// run performs operations until the budget or the deadline is spent, or ctx
// is done. It returns the number of operations performed.
func (s *simulator) run(ctx context.Context) int {
	var deadline time.Time
	if s.cfg.Duration > 0 {
		deadline = time.Now().Add(s.cfg.Duration)
	}

	n := 0
	for s.cfg.Operations <= 0 || n < s.cfg.Operations {
		if n&1023 == 0 {
			if ctx.Err() != nil {
				break
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				break
			}
		}
		s.step()
		n++
	}
	return n
}

func (s *simulator) step() {
	switch r := s.rng.Intn(100); {
	case r < 50:
		s.add()
	case r < 75:
		s.cancel()
	case r < 85:
		s.modify()
	default:
		s.trade()
	}
}

func (s *simulator) side() hftcore.Side {
	if s.rng.Intn(2) == 0 {
		return hftcore.Bid
	}
	return hftcore.Ask
}

// price returns a price k 64ths away from the mid, below it for bids and
// above it for asks.
func (s *simulator) price(side hftcore.Side) hftcore.Price {
	offset := hftcore.Price(s.rng.Intn(s.cfg.PriceLevels)+1) * hftcore.Price32nd(0, 0, true)
	if side == hftcore.Bid {
		return s.cfg.MidPrice - offset
	}
	return s.cfg.MidPrice + offset
}

func (s *simulator) quantity() uint64 {
	return uint64(s.rng.Int63n(int64(s.cfg.MaxQuantity))) + 1
}

func (s *simulator) add() {
	side := s.side()
	o := hftcore.Order{
		ID:         s.nextID,
		Instrument: s.cfg.Instrument,
		Side:       side,
		Kind:       hftcore.Limit,
		Price:      s.price(side),
		Quantity:   s.quantity(),
	}
	s.nextID++

	if !s.book.AddOrder(o) {
		s.rejects++
		return
	}
	s.pos[o.ID] = len(s.ids)
	s.ids = append(s.ids, o.ID)
	s.adds++
}

// pick returns a random live order id, forgetting ids that trades removed.
func (s *simulator) pick() (uint64, bool) {
	for len(s.ids) > 0 {
		id := s.ids[s.rng.Intn(len(s.ids))]
		if _, ok := s.book.Order(id); ok {
			return id, true
		}
		s.forget(id)
	}
	return 0, false
}

func (s *simulator) forget(id uint64) {
	i, ok := s.pos[id]
	if !ok {
		return
	}
	last := s.ids[len(s.ids)-1]
	s.ids[i] = last
	s.pos[last] = i
	s.ids = s.ids[:len(s.ids)-1]
	delete(s.pos, id)
}

func (s *simulator) cancel() {
	id, ok := s.pick()
	if !ok {
		return
	}
	if s.book.CancelOrder(id) {
		s.forget(id)
		s.cancels++
	}
}

func (s *simulator) modify() {
	id, ok := s.pick()
	if !ok {
		return
	}
	o, _ := s.book.Order(id)
	if s.book.ModifyOrder(id, s.price(o.Side), s.quantity()) {
		s.modifies++
		return
	}
	// a failed re-add leaves the order cancelled
	s.rejects++
	if _, ok := s.book.Order(id); !ok {
		s.forget(id)
	}
}

func (s *simulator) trade() {
	side := s.side()
	price, _ := s.book.BestBid()
	if side == hftcore.Ask {
		price, _ = s.book.BestAsk()
	}
	if price == 0 {
		return
	}
	s.fills += s.book.ProcessTrade(price, s.quantity(), side)
	s.trades++
}
