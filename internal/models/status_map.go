package models

// localStatusByMarketplace maps marketplace order statuses onto local
// commerce order status ids. Unknown statuses fall back to the initial
// "pending" status.
var localStatusByMarketplace = map[string]int{
	"Created":          1,
	"Approved":         2,
	"Picking":          2,
	"Shipped":          3,
	"Delivered":        5,
	"Cancelled":        7,
	"Return Initiated": 11,
}

// LocalStatusID returns the local order status id for a marketplace
// order status.
func LocalStatusID(status string) int {
	if id, ok := localStatusByMarketplace[status]; ok {
		return id
	}
	return 1
}
