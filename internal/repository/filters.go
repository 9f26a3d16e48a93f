package repository

// WatchSessionFilter constrains session history listings.
type WatchSessionFilter struct {
	Owner   string // empty = every owner
	OrderID string // empty = all orders
	Outcome string // empty = any outcome
	Limit   int
	Offset  int
}
