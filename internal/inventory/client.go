// Package inventory is the HTTP client for the external inventory API.
//
// The API is queried by product code and may return several variant records
// sharing the same barcode. Auth is via access/secret token headers.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stockwatch/config"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotFound means the source has no record for the barcode. Distinct from
// transport failures so the monitor can count and log them separately.
var ErrNotFound = errors.New("inventory: product not found")

// Variant is one record from the inventory source.
type Variant struct {
	ID    string  `json:"id"`
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Stock int     `json:"currentStock"`
	Price float64 `json:"price"`
}

// StockInfo is the resolved stock for a single monitored product.
type StockInfo struct {
	VariantID string
	Name      string
	Stock     int
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	secretToken string
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates an inventory client with rate limiting and a bounded
// request timeout. Lookups never retry; the caller treats a failure as one
// counted error.
func NewClient(cfg *config.InventoryConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		secretToken: cfg.SecretToken,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:      logger.Named("inventory"),
	}
}

// Configured reports whether credentials are present. An unconfigured client
// fails the whole monitoring pass up front rather than per product.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.accessToken != "" && c.secretToken != ""
}

// flexValue accepts a JSON number or a quoted number; some source versions
// send stock and price as strings.
type flexValue string

func (f *flexValue) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" {
		s = ""
	}
	*f = flexValue(s)
	return nil
}

// record is the wire shape.
type record struct {
	ID           flexValue `json:"id"`
	Name         string    `json:"name"`
	Stock        flexValue `json:"stock"`
	Price        flexValue `json:"price"`
	InternalCode string    `json:"internal_code"`
	Barcode      string    `json:"barcode"`
}

type listResponse struct {
	Data []record `json:"data"`
}

// Search returns all variants the source knows for a product code.
func (c *Client) Search(ctx context.Context, code string) ([]Variant, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("code", code)
	u := c.baseURL + "/products?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Access-Token", c.accessToken)
	req.Header.Set("X-Secret-Token", c.secretToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inventory status %d: %s", resp.StatusCode, string(body))
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	variants := make([]Variant, 0, len(decoded.Data))
	for _, rec := range decoded.Data {
		sku := rec.InternalCode
		if sku == "" {
			sku = rec.Barcode
		}
		variants = append(variants, Variant{
			ID:    string(rec.ID),
			SKU:   sku,
			Name:  rec.Name,
			Stock: parseIntDefault(string(rec.Stock), 0),
			Price: parseFloatDefault(string(rec.Price), 0),
		})
	}
	return variants, nil
}

// Lookup resolves current stock for one product. When variantID is set the
// matching record wins; otherwise (or when no record matches) the first
// record in source order is used. Returns ErrNotFound on an empty result.
func (c *Client) Lookup(ctx context.Context, barcode string, variantID *string) (*StockInfo, error) {
	variants, err := c.Search(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, ErrNotFound
	}

	chosen := variants[0]
	if variantID != nil {
		for _, v := range variants {
			if v.ID == *variantID {
				chosen = v
				break
			}
		}
	}

	name := chosen.Name
	if name == "" {
		name = "Product " + barcode
	}
	return &StockInfo{
		VariantID: chosen.ID,
		Name:      name,
		Stock:     chosen.Stock,
	}, nil
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func parseFloatDefault(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}
