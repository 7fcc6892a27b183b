package sepay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
)

// ErrProcessorUnreachable covers timeouts, connection failures, an open breaker and 5xx replies.
// Callers should leave payment state untouched and let the client retry.
var ErrProcessorUnreachable = errors.New("payment processor unreachable")

// Status is the processor's view of a transfer.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

type ClientConfig struct {
	BaseURL          string
	APIToken         string
	Secret           string
	AccountNumber    string
	Timeout          time.Duration
	BreakerThreshold int64
}

// Lookup identifies the transfer a payment expects.
type Lookup struct {
	Reference string
	Amount    int64
}

// Transaction is one row of the SePay transactions API.
type Transaction struct {
	ID                 string `json:"id"`
	BankBrandName      string `json:"bank_brand_name"`
	AccountNumber      string `json:"account_number"`
	TransactionDate    string `json:"transaction_date"`
	AmountIn           string `json:"amount_in"`
	AmountOut          string `json:"amount_out"`
	TransactionContent string `json:"transaction_content"`
	ReferenceNumber    string `json:"reference_number"`
}

type transactionsResponse struct {
	Status   int `json:"status"`
	Messages struct {
		Success bool `json:"success"`
	} `json:"messages"`
	Transactions []Transaction `json:"transactions"`
}

// errServerFailure marks 5xx replies so they count against the breaker.
var errServerFailure = errors.New("processor server error")

type Client struct {
	cfg     ClientConfig
	http    *http.Client
	breaker *circuit.Breaker
	now     func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: circuit.NewThresholdBreaker(cfg.BreakerThreshold),
		now:     time.Now,
	}
}

// FindTransfer asks the processor whether a transfer matching lookup has arrived.
func (c *Client) FindTransfer(ctx context.Context, lookup Lookup) (Status, *Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := Payload{
		"account_number": c.cfg.AccountNumber,
		"amount_in":      lookup.Amount,
		"limit":          int64(50),
		"timestamp":      c.now().Unix(),
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/transactions/list?" + encodeQuery(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build transactions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("X-Signature", Sign(params, c.cfg.Secret))
	req.Header.Set("Accept", "application/json")

	var resp *http.Response
	err = c.breaker.CallContext(ctx, func() error {
		r, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= http.StatusInternalServerError {
			r.Body.Close()
			return fmt.Errorf("%w: status %d", errServerFailure, r.StatusCode)
		}
		resp = r
		return nil
	}, 0)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrProcessorUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", nil, fmt.Errorf("processor rejected request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("decode transactions response: %w", err)
	}

	want := NormalizeReference(lookup.Reference)
	for i := range result.Transactions {
		tx := result.Transactions[i]
		if !strings.Contains(NormalizeReference(tx.TransactionContent), want) {
			continue
		}
		if parseAmount(tx.AmountIn) == lookup.Amount {
			return StatusSuccess, &tx, nil
		}
	}

	return StatusPending, nil, nil
}

func encodeQuery(params Payload) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, key := range keys {
		values = append(values, url.QueryEscape(key)+"="+url.QueryEscape(stringify(params[key])))
	}
	return strings.Join(values, "&")
}

func parseAmount(value string) int64 {
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return -1
	}
	return int64(amount)
}
