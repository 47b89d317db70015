// Package market implements the item marketplace and the coin economy.
package market

// ItemType distinguishes what an item's content is.
type ItemType string

const (
	ItemText      ItemType = "Text"
	ItemUserTheme ItemType = "UserTheme"
)

// ItemStatus is the moderation lifecycle of an item.
type ItemStatus string

const (
	ItemPending  ItemStatus = "Pending"
	ItemApproved ItemStatus = "Approved"
	ItemRejected ItemStatus = "Rejected"
	ItemFeatured ItemStatus = "Featured"
)

// Item cost sentinels; any positive cost is a price in coins.
const (
	CostFree    int32 = 0
	CostOffSale int32 = -1
)

// SystemItemID is the reserved item used by administrative transactions
// that do not correspond to a real product.
const SystemItemID = "0"

// Item is a user-created marketplace listing.
type Item struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cost        int32      `json:"cost"`
	Content     string     `json:"content"`
	Type        ItemType   `json:"type"`
	Status      ItemStatus `json:"status"`
	TS          uint64     `json:"timestamp"`
	CreatorID   string     `json:"creator"`
}

// SystemItem returns the synthetic reserved item. It is never persisted.
func SystemItem() *Item {
	return &Item{
		ID:     SystemItemID,
		Name:   "System",
		Cost:   CostOffSale,
		Type:   ItemText,
		Status: ItemApproved,
	}
}

// ItemCreate is the input for listing an item.
type ItemCreate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Cost        int32    `json:"cost"`
	Type        ItemType `json:"type"`
}

// ItemEdit updates listing fields; content edits are separate.
type ItemEdit struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int32  `json:"cost"`
}

// Transaction is a signed coin movement. A purchase by the customer has
// a negative amount.
type Transaction struct {
	ID         string `json:"id"`
	Amount     int32  `json:"amount"`
	ItemID     string `json:"item"`
	TS         uint64 `json:"timestamp"`
	CustomerID string `json:"customer"`
	MerchantID string `json:"merchant"`
}

// TransactionCreate is the input for committing a transaction.
type TransactionCreate struct {
	Merchant string `json:"merchant"`
	Item     string `json:"item"`
	Amount   int32  `json:"amount"`
}
