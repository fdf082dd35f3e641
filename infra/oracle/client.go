// Package oracle implements the balance oracle client: the external node
// answering what an address really owns.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mako/domain/dex"
)

// Client queries balances and asset metadata over HTTP. It implements
// dex.BalanceOracle and dex.AssetResolver.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the oracle at base.
func New(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Balances fetches addr's balances for the given assets.
func (c *Client) Balances(ctx context.Context, addr dex.PublicKey, assets []dex.Asset) (map[dex.Asset]uint64, error) {
	names := make([]string, len(assets))
	for i, a := range assets {
		names[i] = a.String()
	}
	u := fmt.Sprintf("%s/balances/%s?assets=%s",
		c.base, url.PathEscape(addr.String()), url.QueryEscape(strings.Join(names, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned %s", resp.Status)
	}

	var raw map[string]uint64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding oracle response: %w", err)
	}
	out := make(map[dex.Asset]uint64, len(raw))
	for name, balance := range raw {
		asset, err := dex.ParseAsset(name)
		if err != nil {
			return nil, fmt.Errorf("oracle returned unknown asset %q", name)
		}
		out[asset] = balance
	}
	return out, nil
}

// Describe fetches asset metadata. An asset the oracle does not know maps
// to dex.ErrAssetNotFound.
func (c *Client) Describe(ctx context.Context, asset dex.Asset) (dex.AssetInfo, error) {
	u := fmt.Sprintf("%s/assets/%s", c.base, url.PathEscape(asset.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return dex.AssetInfo{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return dex.AssetInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return dex.AssetInfo{}, fmt.Errorf("%w: %s", dex.ErrAssetNotFound, asset)
	}
	if resp.StatusCode != http.StatusOK {
		return dex.AssetInfo{}, fmt.Errorf("oracle returned %s", resp.Status)
	}

	var body struct {
		Decimals  uint8 `json:"decimals"`
		HasScript bool  `json:"hasScript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return dex.AssetInfo{}, fmt.Errorf("decoding oracle response: %w", err)
	}
	return dex.AssetInfo{Decimals: body.Decimals, HasScript: body.HasScript}, nil
}

// Static is a fixed-balance oracle for tests and local development.
type Static map[dex.PublicKey]map[dex.Asset]uint64

// Balances returns the configured balances; unknown addresses and assets
// read as zero.
func (s Static) Balances(_ context.Context, addr dex.PublicKey, assets []dex.Asset) (map[dex.Asset]uint64, error) {
	out := make(map[dex.Asset]uint64, len(assets))
	for _, a := range assets {
		out[a] = s[addr][a]
	}
	return out, nil
}

// StaticAssets is a fixed asset resolver for tests and local development.
// The native asset is always known.
type StaticAssets map[dex.Asset]dex.AssetInfo

// Describe returns the configured metadata, or dex.ErrAssetNotFound for
// issued assets absent from the map.
func (s StaticAssets) Describe(_ context.Context, asset dex.Asset) (dex.AssetInfo, error) {
	if info, ok := s[asset]; ok {
		return info, nil
	}
	if asset.IsNative() {
		return dex.AssetInfo{Decimals: 8}, nil
	}
	return dex.AssetInfo{}, fmt.Errorf("%w: %s", dex.ErrAssetNotFound, asset)
}
