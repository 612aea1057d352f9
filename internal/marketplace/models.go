package marketplace

import "time"

// ProductPayload is the listing shape pushed on first sync.
type ProductPayload struct {
	Barcode     string  `json:"barcode"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	StockCode   string  `json:"stockCode"`
	Quantity    int     `json:"quantity"`
	ListPrice   float64 `json:"listPrice"`
	SalePrice   float64 `json:"salePrice"`
	Currency    string  `json:"currencyType,omitempty"`
}

// ProductFields carries only the mutable listing fields for updates.
type ProductFields struct {
	Quantity  int     `json:"quantity"`
	ListPrice float64 `json:"listPrice"`
	SalePrice float64 `json:"salePrice"`
}

// OrderWindow bounds an order fetch to a trailing time range.
type OrderWindow struct {
	Start time.Time
	End   time.Time
}

// RemoteOrder is one order as returned by the marketplace order feed.
type RemoteOrder struct {
	OrderNumber       string  `json:"orderNumber"`
	Status            string  `json:"status"`
	GrossAmount       float64 `json:"grossAmount"`
	TotalDiscount     float64 `json:"totalDiscount"`
	CustomerFirstName string  `json:"customerFirstName"`
	CustomerLastName  string  `json:"customerLastName"`
	CustomerEmail     string  `json:"customerEmail"`
	OrderDate         int64   `json:"orderDate"` // epoch milliseconds
	TrackingNumber    string  `json:"trackingNumber"`
	CargoProvider     string  `json:"cargoProviderName"`
}

// OrdersPage is one page of the paginated order feed.
type OrdersPage struct {
	Content      []RemoteOrder `json:"content"`
	Page         int           `json:"page"`
	Size         int           `json:"size"`
	TotalPages   int           `json:"totalPages"`
	TotalElement int           `json:"totalElements"`
}

type createProductResponse struct {
	ProductID string `json:"productId"`
	Barcode   string `json:"barcode"`
}
