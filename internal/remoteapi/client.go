package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/events"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"github.com/redis/go-redis/v9"
)

// APIError is a non-2xx response from a remote service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client calls the occupancy and pricing services. It implements both
// slots.OccupancySource and slots.Pricer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

type occupanciesResponse struct {
	Occupancies []slots.Interval `json:"occupancies"`
}

type pricingRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// NewClient constructs a client with baseURL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for occupancy lookups.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// FindOccupancies fetches the asset's occupied intervals touching [start, end].
func (c *Client) FindOccupancies(ctx context.Context, assetID string, start, end time.Time) ([]slots.Interval, error) {
	q := url.Values{}
	q.Set("asset_id", assetID)
	q.Set("start_time", start.Format(time.RFC3339))
	q.Set("end_time", end.Format(time.RFC3339))
	endpoint := fmt.Sprintf("%s/occupancies?%s", c.baseURL, q.Encode())

	cacheKey := fmt.Sprintf("occupancies:%s:%d:%d", assetID, start.Unix(), end.Unix())
	var resp occupanciesResponse

	if c.readCache(ctx, cacheKey, &resp) {
		return resp.Occupancies, nil
	}

	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Occupancies == nil {
		resp.Occupancies = []slots.Interval{}
	}
	c.writeCache(ctx, cacheKey, resp)
	return resp.Occupancies, nil
}

// InvalidateAsset drops cached occupancy lookups for the asset.
func (c *Client) InvalidateAsset(ctx context.Context, assetID string) error {
	if c.redis == nil {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, fmt.Sprintf("occupancies:%s:*", assetID), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// SubscribeInvalidation drops cached lookups of an asset whenever one of its
// occupancies is created or released.
func (c *Client) SubscribeInvalidation(bus *events.EventBus) {
	handler := func(e events.Event) error {
		var payload struct {
			AssetID string `json:"asset_id"`
		}
		if err := e.Decode(&payload); err != nil {
			return err
		}
		if payload.AssetID == "" {
			return nil
		}
		return c.InvalidateAsset(context.Background(), payload.AssetID)
	}
	bus.Subscribe(events.OccupancyCreated, handler)
	bus.Subscribe(events.OccupancyReleased, handler)
}

// CalculateTotal asks the pricing service for the total of [start, end].
func (c *Client) CalculateTotal(ctx context.Context, start, end time.Time) (slots.Price, error) {
	endpoint := fmt.Sprintf("%s/pricing/total", c.baseURL)
	var resp slots.Price
	if err := c.doPost(ctx, endpoint, pricingRequest{StartTime: start, EndTime: end}, &resp); err != nil {
		return slots.Price{}, err
	}
	return resp, nil
}

// HealthCheck checks if the remote API is available.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}
	var wrap struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &wrap) == nil && wrap.Error != "" {
		apiErr.Message = wrap.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
