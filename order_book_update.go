package hftcore

// notifySampled publishes u for one operation in every NotifyEvery, starting
// with the first. Every call counts as one operation.
func (book *OrderBook) notifySampled(u Update) {
	if book.operations&book.notifyMask == 0 {
		book.notify(u)
	}
	book.operations++
}

// notify stamps u with the book sequence, time and session and pushes it.
// A full ring drops the update and counts it.
func (book *OrderBook) notify(u Update) {
	if u.Sequence == 0 {
		u.Sequence = book.sequence
	}
	u.Timestamp = book.lastUpdate
	u.Session = book.session

	if !book.updates.TryPush(u) {
		book.dropped++
		book.metrics.incDropped()
	}
}
