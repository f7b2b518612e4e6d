// Package catalog reads products and categories from the external content
// store. The store is read-only from the kiosk's point of view.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PageSize is the number of products requested per page.
const PageSize = 25

// Category is a product category shown in the category slider.
type Category struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

// Product is a catalog entry. The content store already flattens its records
// (no "attributes" wrapper).
type Product struct {
	ID        int             `json:"id"`
	Name      string          `json:"nom"`
	Price     decimal.Decimal `json:"prix"`
	Image     string          `json:"image"`
	Available bool            `json:"disponible"`
	Category  *Category       `json:"category"`
}

// Key returns the product id as the opaque string used by the cart.
func (p Product) Key() string {
	return strconv.Itoa(p.ID)
}

// StatusError is returned when the content store answers with a non-2xx status.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: %s returned status %d", e.URL, e.Status)
}

type productPage struct {
	Data []Product `json:"data"`
	Meta struct {
		Pagination *struct {
			PageCount int `json:"pageCount"`
		} `json:"pagination"`
	} `json:"meta"`
}

type categoryList struct {
	Data []Category `json:"data"`
}

// Client fetches catalog data over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a Client for the given API base URL
// (e.g. https://cms.example.com/api).
func NewClient(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, log: log}
}

// FetchCategories returns every category.
func (c *Client) FetchCategories(ctx context.Context) ([]Category, error) {
	var resp categoryList
	if err := c.getJSON(ctx, c.baseURL+"/categories", &resp); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	if resp.Data == nil {
		return []Category{}, nil
	}
	return resp.Data, nil
}

// FetchCategory walks every product page in order and returns the products
// whose category title equals name.
func (c *Client) FetchCategory(ctx context.Context, name string) ([]Product, error) {
	var all []Product
	pageCount := 1
	for page := 1; page <= pageCount; page++ {
		var resp productPage
		if err := c.getJSON(ctx, c.productsURL(page), &resp); err != nil {
			return nil, fmt.Errorf("fetch products page %d: %w", page, err)
		}
		if page == 1 && resp.Meta.Pagination != nil {
			pageCount = resp.Meta.Pagination.PageCount
		}
		all = append(all, resp.Data...)
	}

	out := make([]Product, 0, len(all))
	for _, p := range all {
		if p.Category != nil && p.Category.Title == name {
			out = append(out, p)
		}
	}
	c.log.Debug("catalog category fetched",
		zap.String("category", name),
		zap.Int("pages", pageCount),
		zap.Int("products", len(out)),
	)
	return out, nil
}

func (c *Client) productsURL(page int) string {
	q := url.Values{}
	q.Set("populate", "*")
	q.Set("pagination[page]", strconv.Itoa(page))
	q.Set("pagination[pageSize]", strconv.Itoa(PageSize))
	return c.baseURL + "/products?" + q.Encode()
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, URL: u}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Available returns the products flagged as available, preserving order.
func Available(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}
