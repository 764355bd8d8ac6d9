// Package feed fetches token market data from DexScreener
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com/latest/dex/tokens"

	maxBodySize = 4 << 20
	userAgent   = "cryptoalert/1.0"
)

// DexScreener implements core.PriceFeed against the DexScreener tokens endpoint
type DexScreener struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a DexScreener client
type Option func(*DexScreener)

// WithBaseURL points the client to another endpoint, used by tests
func WithBaseURL(baseURL string) Option {
	return func(d *DexScreener) {
		d.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default transport
func WithHTTPClient(client *http.Client) Option {
	return func(d *DexScreener) {
		d.httpClient = client
	}
}

func NewDexScreener(options ...Option) *DexScreener {
	d := &DexScreener{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// FetchPrice returns the snapshot of the first pair listed for address.
// Any upstream problem is reported as core.ErrNotFound; only context
// cancellation is passed through untouched.
func (d *DexScreener) FetchPrice(ctx context.Context, address string) (core.PriceSnapshot, error) {
	if strings.TrimSpace(address) == "" {
		return core.PriceSnapshot{}, fmt.Errorf("%w: %w", core.ErrNotFound, core.ErrEmptyAddress)
	}

	body, err := d.get(ctx, address)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.PriceSnapshot{}, ctxErr
		}
		return core.PriceSnapshot{}, fmt.Errorf("%w: %s: %w", core.ErrNotFound, address, err)
	}

	snapshot, err := parsePairs(body)
	if err != nil {
		return core.PriceSnapshot{}, fmt.Errorf("%w: %s: %w", core.ErrNotFound, address, err)
	}

	return snapshot, nil
}

func (d *DexScreener) get(ctx context.Context, address string) ([]byte, error) {
	endpoint := d.baseURL + "/" + url.PathEscape(address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

var (
	errMalformed = errors.New("malformed payload")
	errNoPairs   = errors.New("no trading pairs")
)

// parsePairs extracts the snapshot from the first entry of "pairs"; the
// upstream ordering puts the most liquid pair first and is trusted as is
func parsePairs(body []byte) (core.PriceSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return core.PriceSnapshot{}, errMalformed
	}

	pairs := gjson.GetBytes(body, "pairs")
	if !pairs.IsArray() || len(pairs.Array()) == 0 {
		return core.PriceSnapshot{}, errNoPairs
	}

	pair := pairs.Array()[0]

	price, err := decimal.NewFromString(pair.Get("priceUsd").String())
	if err != nil {
		return core.PriceSnapshot{}, fmt.Errorf("%w: priceUsd: %w", errMalformed, err)
	}

	change1h, err := percent(pair, "priceChange.h1")
	if err != nil {
		return core.PriceSnapshot{}, err
	}

	change24h, err := percent(pair, "priceChange.h24")
	if err != nil {
		return core.PriceSnapshot{}, err
	}

	return core.PriceSnapshot{
		Price:       price,
		Change1h:    change1h,
		Change24h:   change24h,
		Symbol:      pair.Get("baseToken.symbol").String(),
		Name:        pair.Get("baseToken.name").String(),
		PairAddress: pair.Get("pairAddress").String(),
		DexID:       pair.Get("dexId").String(),
		URL:         pair.Get("url").String(),
	}, nil
}

// percent reads a numeric field that DexScreener may encode as a number or a string
func percent(pair gjson.Result, path string) (float64, error) {
	value := pair.Get(path)

	switch value.Type {
	case gjson.Number:
		return value.Num, nil
	case gjson.String:
		d, err := decimal.NewFromString(value.Str)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", errMalformed, path, err)
		}
		return d.InexactFloat64(), nil
	default:
		return 0, fmt.Errorf("%w: missing %s", errMalformed, path)
	}
}
