package model

// Room is the catalog's view of a room as read by this service.  Only the
// fields needed for pricing and availability sync are kept.
type Room struct {
	ID                uint64
	Number            string
	NightlyPriceCents int64
	Available         bool
}

// Customer is a profile resolved from the customer directory.
type Customer struct {
	ID       uint64
	Document string // external identifier (national ID)
	FullName string
	Email    string
	Phone    string
}
