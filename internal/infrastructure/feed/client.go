package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
	"github.com/warebill/backend/internal/infrastructure/config"
)

// maxFeedResponseSize limits the response body size to prevent memory exhaustion
const maxFeedResponseSize = 10 * 1024 * 1024 // 10MB max response

// ChargePage is one page of per-charge detail from the upstream feed
type ChargePage struct {
	Records    []billing.RawChargeRecord
	NextCursor string
}

// Client is the port to the fulfillment provider's billing feed. Per-charge
// detail is only retained upstream for a bounded window; invoice totals stay
// queryable indefinitely.
type Client interface {
	// FetchCharges returns one page of charges in the window. An empty
	// cursor starts from the beginning; an empty NextCursor ends paging.
	FetchCharges(ctx context.Context, start, end time.Time, cursor string, pageSize int) (ChargePage, error)

	// FetchInvoices returns the provider's authoritative invoices for the window
	FetchInvoices(ctx context.Context, start, end time.Time) ([]billing.UpstreamInvoice, error)
}

// upstreamInvoicePayload is the wire shape of a provider invoice
type upstreamInvoicePayload struct {
	ExternalID  string `json:"external_id"`
	Category    string `json:"category_type"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// chargePagePayload is the wire shape of one charges page
type chargePagePayload struct {
	Records    []billing.RawChargeRecord `json:"records"`
	NextCursor string                    `json:"next_cursor"`
}

// HTTPClient implements Client against the provider's REST billing API
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP feed client from configuration
func NewHTTPClient(cfg *config.FeedConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}, nil
}

// FetchCharges returns one page of charges in the window
func (c *HTTPClient) FetchCharges(ctx context.Context, start, end time.Time, cursor string, pageSize int) (ChargePage, error) {
	query := url.Values{}
	query.Set("start", start.UTC().Format(time.RFC3339))
	query.Set("end", end.UTC().Format(time.RFC3339))
	query.Set("page_size", strconv.Itoa(pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	body, err := c.get(ctx, "/v1/billing/charges", query)
	if err != nil {
		return ChargePage{}, err
	}

	var payload chargePagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ChargePage{}, fmt.Errorf("feed: failed to decode charges page: %w", err)
	}
	return ChargePage{Records: payload.Records, NextCursor: payload.NextCursor}, nil
}

// FetchInvoices returns the provider's authoritative invoices for the window
func (c *HTTPClient) FetchInvoices(ctx context.Context, start, end time.Time) ([]billing.UpstreamInvoice, error) {
	query := url.Values{}
	query.Set("start", start.UTC().Format(time.RFC3339))
	query.Set("end", end.UTC().Format(time.RFC3339))

	body, err := c.get(ctx, "/v1/billing/invoices", query)
	if err != nil {
		return nil, err
	}

	var payloads []upstreamInvoicePayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, fmt.Errorf("feed: failed to decode invoices: %w", err)
	}

	invoices := make([]billing.UpstreamInvoice, 0, len(payloads))
	for _, p := range payloads {
		invoice, err := convertInvoicePayload(p)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	requestURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedResponseSize))
	if err != nil {
		return nil, fmt.Errorf("feed: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFeedRequestFailed, resp.StatusCode)
	}
	return body, nil
}

func convertInvoicePayload(p upstreamInvoicePayload) (billing.UpstreamInvoice, error) {
	total, err := decimal.NewFromString(p.Total)
	if err != nil {
		return billing.UpstreamInvoice{}, fmt.Errorf("feed: unparseable invoice total %q on %s: %w", p.Total, p.ExternalID, err)
	}
	currency := valueobject.Currency(p.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	money, err := valueobject.NewMoney(total, currency)
	if err != nil {
		return billing.UpstreamInvoice{}, fmt.Errorf("feed: invalid invoice total on %s: %w", p.ExternalID, err)
	}

	periodStart, err := time.Parse(time.RFC3339, p.PeriodStart)
	if err != nil {
		return billing.UpstreamInvoice{}, fmt.Errorf("feed: unparseable period start on %s: %w", p.ExternalID, err)
	}
	periodEnd, err := time.Parse(time.RFC3339, p.PeriodEnd)
	if err != nil {
		return billing.UpstreamInvoice{}, fmt.Errorf("feed: unparseable period end on %s: %w", p.ExternalID, err)
	}

	category, ok := billing.ParseUpstreamCategory(p.Category)
	if !ok {
		category = billing.FeeCategoryOther
	}

	return billing.UpstreamInvoice{
		ExternalID:         p.ExternalID,
		CategoryType:       category,
		AuthoritativeTotal: money,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
	}, nil
}
