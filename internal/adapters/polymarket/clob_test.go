package polymarket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgamingbc/polymarket-arbitrage-trading-tool-sub003/internal/adapters/polymarket"
)

func newTestClient(clobSrv, gammaSrv *httptest.Server) *polymarket.Client {
	clobURL, gammaURL := "", ""
	if clobSrv != nil {
		clobURL = clobSrv.URL
	}
	if gammaSrv != nil {
		gammaURL = gammaSrv.URL
	}
	return polymarket.NewClient(clobURL, gammaURL, "")
}

const marketsPageOne = `{
	"limit": 100, "count": 2, "next_cursor": "cursor2",
	"data": [
		{
			"condition_id": "0xaaa", "question_id": "0xq1",
			"question": "Will A happen?", "market_slug": "will-a-happen",
			"end_date_iso": "2026-09-15T12:00:00Z",
			"active": true, "closed": false,
			"tokens": [
				{"token_id": "a_yes", "outcome": "Yes", "price": 0.62},
				{"token_id": "a_no",  "outcome": "No",  "price": 0.40}
			]
		},
		{
			"condition_id": "0xbad", "question_id": "0xq2",
			"question": "Broken market", "tokens": []
		}
	]
}`

const marketsPageTwo = `{
	"limit": 100, "count": 1, "next_cursor": "LTE=",
	"data": [
		{
			"condition_id": "0xbbb", "question_id": "0xq3",
			"question": "Will B happen?", "market_slug": "will-b-happen",
			"end_date_iso": "2026-10-01T00:00:00Z",
			"active": true, "closed": false,
			"tokens": [
				{"token_id": "b_yes", "outcome": "Yes", "price": 0.30},
				{"token_id": "b_no",  "outcome": "No",  "price": 0.72}
			]
		}
	]
}`

func TestFetchActiveMarkets_PaginatesAndDropsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("next_cursor") == "cursor2" {
			w.Write([]byte(marketsPageTwo))
			return
		}
		w.Write([]byte(marketsPageOne))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	markets, err := client.FetchActiveMarkets(context.Background())

	require.NoError(t, err)
	// 0xbad no tiene tokens: se descarta
	require.Len(t, markets, 2)
	assert.Equal(t, "0xaaa", markets[0].ConditionID)
	assert.Equal(t, "a_yes", markets[0].Tokens[0].TokenID)
	assert.Equal(t, "0xbbb", markets[1].ConditionID)
}

func TestFetchActiveMarkets_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, err := client.FetchActiveMarkets(context.Background())
	assert.ErrorContains(t, err, "client error 404")
}

func TestFetchOrderBooks_Batch(t *testing.T) {
	books := `[
		{
			"asset_id": "a_yes",
			"bids": [{"price": "0.58", "size": "100"}, {"price": "0.60", "size": "250"}],
			"asks": [{"price": "0.62", "size": "120"}]
		},
		{
			"asset_id": "a_no",
			"bids": [{"price": "0.38", "size": "90"}],
			"asks": [{"price": "0.40", "size": "300"}]
		}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(books))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	got, err := client.FetchOrderBooks(context.Background(), []string{"a_yes", "a_no"})

	require.NoError(t, err)
	require.Len(t, got, 2)

	yes := got["a_yes"]
	assert.Equal(t, 0.60, yes.BestBid(), "el mejor bid queda primero tras normalizar")
	assert.Equal(t, 0.62, yes.BestAsk())
	assert.InDelta(t, 0.61, yes.Mid(), 1e-9)

	no := got["a_no"]
	assert.Equal(t, 0.40, no.BestAsk())
}

func TestFetchOrderBooks_BatchSplitting(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var reqs []map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		assert.LessOrEqual(t, len(reqs), 20)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)

	// 25 token_ids → 2 requests (20 + 5)
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = "tok" + string(rune('a'+i))
	}
	_, err := client.FetchOrderBooks(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchOrderBooks_Empty(t *testing.T) {
	client := newTestClient(nil, nil)
	got, err := client.FetchOrderBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
