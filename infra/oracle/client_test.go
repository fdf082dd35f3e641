package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/domain/dex"
)

func oracleAsset(b byte) dex.Asset {
	var id dex.AssetID
	for i := range id {
		id[i] = b
	}
	return dex.IssuedAsset(id)
}

func TestClientBalances(t *testing.T) {
	asset := oracleAsset(0xaa)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/balances/")
		w.Write([]byte(`{"` + asset.String() + `": 700, "` + dex.NativeAssetName + `": 50}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	var addr dex.PublicKey
	addr[0] = 1
	balances, err := c.Balances(context.Background(), addr, []dex.Asset{asset, dex.NativeAsset()})
	require.NoError(t, err)
	assert.Equal(t, uint64(700), balances[asset])
	assert.Equal(t, uint64(50), balances[dex.NativeAsset()])
}

func TestClientDescribe(t *testing.T) {
	known := oracleAsset(0xbb)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/"+known.String() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"decimals": 6, "hasScript": true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	info, err := c.Describe(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, dex.AssetInfo{Decimals: 6, HasScript: true}, info)

	_, err = c.Describe(context.Background(), oracleAsset(0xcc))
	assert.ErrorIs(t, err, dex.ErrAssetNotFound)
}

func TestStaticAssets(t *testing.T) {
	known := oracleAsset(0xdd)
	r := StaticAssets{known: {Decimals: 2}}

	info, err := r.Describe(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), info.Decimals)

	// The native asset is always resolvable.
	info, err = r.Describe(context.Background(), dex.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, uint8(8), info.Decimals)

	_, err = r.Describe(context.Background(), oracleAsset(0xee))
	assert.ErrorIs(t, err, dex.ErrAssetNotFound)
}
