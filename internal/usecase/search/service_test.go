package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/geo"
	"github.com/kailas-cloud/shopassist/internal/domain/intent"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
	"github.com/kailas-cloud/shopassist/internal/domain/search/request"
	"github.com/kailas-cloud/shopassist/internal/domain/search/result"
	"github.com/kailas-cloud/shopassist/internal/usecase/catmatch"
	"github.com/kailas-cloud/shopassist/internal/usecase/ranking"
	"github.com/kailas-cloud/shopassist/internal/usecase/vectorsearch"
)

// --- Mocks ---

type mockShops struct {
	shops []domcat.Shop
	err   error
}

func (m *mockShops) ListActiveShops(_ context.Context, _ []string) ([]domcat.Shop, error) {
	return append([]domcat.Shop(nil), m.shops...), m.err
}

type mockIntents struct {
	si    intent.SearchIntent
	calls int
	known []string
}

func (m *mockIntents) Extract(_ context.Context, query string, known []string) intent.SearchIntent {
	m.calls++
	m.known = known
	si := m.si
	si.Normalize(query)
	return si
}

type mockItems struct {
	mu      sync.Mutex
	byQuery map[string]vectorsearch.Outcome
	queries []string
}

func (m *mockItems) SearchAcrossShops(_ context.Context, _ []string, q string, _ int, _ float64) vectorsearch.Outcome {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if o, ok := m.byQuery[q]; ok {
		return o
	}
	return vectorsearch.Outcome{Strategy: mode.None}
}

type mockCategories struct {
	cats    catmatch.Categories
	matches map[string]catmatch.Match
}

func (m *mockCategories) Fetch(_ context.Context, _ []string) catmatch.Categories { return m.cats }

func (m *mockCategories) Match(_ context.Context, _ catmatch.Categories, _ []string, _ int) map[string]catmatch.Match {
	if m.matches == nil {
		return map[string]catmatch.Match{}
	}
	return m.matches
}

type mockFees struct {
	err   error
	value int64
}

func (m *mockFees) QuoteBatch(_ context.Context, user geo.Point, shops []domcat.Shop, v int64) (map[string]domcat.Quote, error) {
	m.value = v
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]domcat.Quote{}
	for _, s := range shops {
		l := domcat.DeliveryLogic{ShopID: s.ID, RadiusKm: 3, BaseFeeCents: 2000}
		dist := user.DistanceKm(s.Location)
		out[s.ID] = domcat.Quote{ShopID: s.ID, DistanceKm: dist, FeeCents: l.Fee(dist, v), InZone: l.Covers(dist)}
	}
	return out, nil
}

var home = geo.Point{Lat: 12.9716, Lng: 77.5946}

func shopAt(id string, lat float64) domcat.Shop {
	return domcat.Shop{ID: id, Name: id, Location: geo.Point{Lat: lat, Lng: 77.5946}, AcceptingOrders: true}
}

func item(id, shop string, sim float64, src mode.Mode) result.Item {
	return result.Item{ItemID: id, ShopID: shop, Name: id, Similarity: sim, Source: src, IsActive: true}
}

func newRequest(t *testing.T, q string, loc geo.Point) *request.Request {
	t.Helper()
	r, err := request.New(q, "u1", loc, nil, 0, 0, 0)
	require.NoError(t, err)
	return &r
}

// --- Tests ---

func TestSearch_EmptyArea(t *testing.T) {
	intents := &mockIntents{}
	svc := New(&mockShops{shops: []domcat.Shop{shopAt("far", 13.5)}}, intents, &mockItems{},
		&mockCategories{}, nil, &mockFees{}, ranking.New(ranking.DefaultWeights(), 5))

	resp, err := svc.Search(context.Background(), newRequest(t, "milk", home))

	require.NoError(t, err)
	assert.Empty(t, resp.Shops)
	assert.NotNil(t, resp.Shops)
	assert.Equal(t, mode.None, resp.Strategy)
	assert.NotEmpty(t, resp.Reasoning)
	assert.Zero(t, intents.calls, "no model call for an empty area")
}

func TestSearch_MergesRanksAndQuotes(t *testing.T) {
	items := &mockItems{byQuery: map[string]vectorsearch.Outcome{
		"milk": {Strategy: mode.Vector, Items: []result.Item{
			item("m1", "s1", 0.9, mode.Vector), item("m2", "s2", 0.6, mode.Vector),
		}},
		"doodh": {Strategy: mode.Text, Degradation: mode.DegradedRPC, Items: []result.Item{
			item("m1", "s1", 0.85, mode.Text), item("m3", "s1", 0.85, mode.Text),
		}},
	}}
	cats := &mockCategories{
		cats: catmatch.Categories{"s1": {{ID: "c1", ShopID: "s1", Name: "Dairy"}}},
		matches: map[string]catmatch.Match{"s2": {
			Categories: []string{"Dairy"},
			Items:      []result.Item{item("m4", "s2", 0.7, mode.Category)},
		}},
	}
	intents := &mockIntents{si: intent.SearchIntent{PrimaryQuery: "milk", ExpandedQueries: []string{"doodh"}, Categories: []string{"dairy"}}}
	fees := &mockFees{value: -1}
	svc := New(&mockShops{shops: []domcat.Shop{shopAt("s1", 12.975), shopAt("s2", 12.98), shopAt("s3", 12.972)}},
		intents, items, cats, nil, fees, ranking.New(ranking.DefaultWeights(), 5))

	resp, err := svc.Search(context.Background(), newRequest(t, "milk", home))

	require.NoError(t, err)
	assert.Equal(t, []string{"Dairy"}, intents.known)
	assert.ElementsMatch(t, []string{"milk", "doodh"}, items.queries)
	assert.Equal(t, mode.Vector, resp.Strategy)
	assert.True(t, resp.Degraded)
	assert.Equal(t, int64(0), fees.value, "search quotes with order value 0")

	require.Len(t, resp.Shops, 2, "zero-match shop dropped when others match")
	s1 := resp.Shops[0]
	assert.Equal(t, "s1", s1.Shop.ID)
	assert.Equal(t, 2, s1.MatchCount)
	assert.Equal(t, "m1", s1.MatchingItems[0].ItemID)
	assert.InDelta(t, 0.9, s1.MatchingItems[0].Similarity, 1e-9, "dedupe keeps the higher similarity")
	require.NotNil(t, s1.Delivery)
	assert.Equal(t, int64(2000), s1.Delivery.FeeCents)

	s2 := resp.Shops[1]
	assert.Equal(t, []string{"Dairy"}, s2.CategoryMatches)
	assert.Equal(t, 2, s2.MatchCount)
	assert.GreaterOrEqual(t, s1.RelevanceScore, s2.RelevanceScore)
}

func TestSearch_NoLocationSkipsQuotes(t *testing.T) {
	items := &mockItems{byQuery: map[string]vectorsearch.Outcome{
		"eggs": {Strategy: mode.Vector, Items: []result.Item{item("e1", "s1", 0.8, mode.Vector)}},
	}}
	fees := &mockFees{value: -1}
	svc := New(&mockShops{shops: []domcat.Shop{shopAt("s1", 40)}}, &mockIntents{}, items,
		&mockCategories{}, nil, fees, ranking.New(ranking.DefaultWeights(), 5))

	resp, err := svc.Search(context.Background(), newRequest(t, "eggs", geo.Point{}))

	require.NoError(t, err)
	require.Len(t, resp.Shops, 1)
	assert.Nil(t, resp.Shops[0].Delivery)
	assert.Equal(t, int64(-1), fees.value)
}

func TestSearch_QuoteFailureStillRanks(t *testing.T) {
	items := &mockItems{byQuery: map[string]vectorsearch.Outcome{
		"eggs": {Strategy: mode.Vector, Items: []result.Item{item("e1", "s1", 0.8, mode.Vector)}},
	}}
	svc := New(&mockShops{shops: []domcat.Shop{shopAt("s1", 12.975)}}, &mockIntents{}, items,
		&mockCategories{}, nil, &mockFees{err: errors.New("db down")}, ranking.New(ranking.DefaultWeights(), 5))

	resp, err := svc.Search(context.Background(), newRequest(t, "eggs", home))

	require.NoError(t, err)
	require.Len(t, resp.Shops, 1)
	assert.Nil(t, resp.Shops[0].Delivery)
}

func TestSearch_NothingMatches(t *testing.T) {
	svc := New(&mockShops{shops: []domcat.Shop{shopAt("s1", 12.975)}}, &mockIntents{}, &mockItems{},
		&mockCategories{}, nil, &mockFees{}, ranking.New(ranking.DefaultWeights(), 5))

	resp, err := svc.Search(context.Background(), newRequest(t, "spaceship", home))

	require.NoError(t, err)
	require.Len(t, resp.Shops, 1, "zero-match shops are kept when nothing matches")
	assert.Equal(t, 0, resp.Shops[0].MatchCount)
	assert.Equal(t, mode.None, resp.Strategy)
	assert.NotEmpty(t, resp.Reasoning)
}

func TestSearch_ListError(t *testing.T) {
	svc := New(&mockShops{err: errors.New("db down")}, &mockIntents{}, &mockItems{},
		&mockCategories{}, nil, &mockFees{}, ranking.New(ranking.DefaultWeights(), 5))

	_, err := svc.Search(context.Background(), newRequest(t, "milk", home))

	assert.Error(t, err)
}

type recordingBooster struct{ userID string }

func (b *recordingBooster) Boost(_ context.Context, userID string, _ intent.SearchIntent, items []result.Item) []result.Item {
	b.userID = userID
	for i := range items {
		if items[i].ItemID == "e2" {
			items[i].Similarity = 1
		}
	}
	return items
}

func TestSearch_BoostReordersItems(t *testing.T) {
	items := &mockItems{byQuery: map[string]vectorsearch.Outcome{
		"eggs": {Strategy: mode.Vector, Items: []result.Item{
			item("e1", "s1", 0.9, mode.Vector), item("e2", "s1", 0.6, mode.Vector),
		}},
	}}
	b := &recordingBooster{}
	svc := New(&mockShops{shops: []domcat.Shop{shopAt("s1", 12.975)}}, &mockIntents{}, items,
		&mockCategories{}, b, &mockFees{}, ranking.New(ranking.DefaultWeights(), 5))

	resp, err := svc.Search(context.Background(), newRequest(t, "eggs", home))

	require.NoError(t, err)
	assert.Equal(t, "u1", b.userID)
	assert.Equal(t, "e2", resp.Shops[0].MatchingItems[0].ItemID)
}
