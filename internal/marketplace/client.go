package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketsync/internal/logger"
)

type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	supplierID string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(baseURL, apiKey, apiSecret, supplierID string, logger *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		supplierID: supplierID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// CreateProduct pushes a new listing and returns the marketplace-assigned
// product identifier.
func (c *Client) CreateProduct(ctx context.Context, payload ProductPayload) (string, error) {
	url := fmt.Sprintf("%s/suppliers/%s/products", c.baseURL, c.supplierID)

	body := struct {
		Items []ProductPayload `json:"items"`
	}{Items: []ProductPayload{payload}}

	var resp createProductResponse
	if err := c.do(ctx, "POST", url, body, &resp); err != nil {
		return "", err
	}
	if resp.ProductID == "" {
		return "", fmt.Errorf("marketplace returned no product id for barcode %s", payload.Barcode)
	}
	return resp.ProductID, nil
}

// UpdateProduct pushes only the mutable stock/price fields for an
// existing listing, addressed by barcode.
func (c *Client) UpdateProduct(ctx context.Context, barcode string, fields ProductFields) error {
	url := fmt.Sprintf("%s/suppliers/%s/products/price-and-inventory", c.baseURL, c.supplierID)

	item := struct {
		Barcode string `json:"barcode"`
		ProductFields
	}{Barcode: barcode, ProductFields: fields}

	body := struct {
		Items []interface{} `json:"items"`
	}{Items: []interface{}{item}}

	return c.do(ctx, "POST", url, body, nil)
}

// FetchOrders returns one page of orders last modified inside the window.
func (c *Client) FetchOrders(ctx context.Context, window OrderWindow, page, size int) (*OrdersPage, error) {
	url := fmt.Sprintf("%s/suppliers/%s/orders", c.baseURL, c.supplierID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	q := req.URL.Query()
	q.Set("startDate", fmt.Sprintf("%d", window.Start.UnixMilli()))
	q.Set("endDate", fmt.Sprintf("%d", window.End.UnixMilli()))
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("size", fmt.Sprintf("%d", size))
	q.Set("orderByField", "PackageLastModifiedDate")
	q.Set("orderByDirection", "DESC")
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Kind: classify(resp.StatusCode), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var ordersPage OrdersPage
	if err := json.NewDecoder(resp.Body).Decode(&ordersPage); err != nil {
		return nil, fmt.Errorf("failed to decode orders response: %w", err)
	}

	return &ordersPage, nil
}

func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Kind: classify(resp.StatusCode), StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("%s - marketsync", c.supplierID))
}
