package domain

// Side distinguishes sell (ask) from buy (bid) orders.
type Side string

const (
	SideAsk Side = "ask"
	SideBid Side = "bid"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideAsk || s == SideBid
}

// Order is a resting or incoming order. Price is fixed at creation and
// never changes; Quantity shrinks as fills consume the order. An order with
// Quantity == 0 must never be stored in a book.
type Order struct {
	Actor    string  `json:"actor"`
	Side     Side    `json:"side"`
	Price    float64 `json:"price"`
	Quantity uint64  `json:"quantity"`
}
