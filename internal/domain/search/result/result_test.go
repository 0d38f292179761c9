package result

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/kailas-cloud/shopassist/internal/domain/catalog"
	"github.com/kailas-cloud/shopassist/internal/domain/search/mode"
)

func hit(id string, sim float64) Item {
	return Item{ItemID: id, ShopID: "s1", Name: id, Similarity: sim, Source: mode.Vector}
}

func TestMergeMax_KeepsHigherSimilarity(t *testing.T) {
	a := []Item{hit("x", 0.6), hit("y", 0.9)}
	b := []Item{hit("x", 0.8)}

	got := MergeMax(a, b)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(got))
	}
	if got[0].ItemID != "y" || got[1].ItemID != "x" || got[1].Similarity != 0.8 {
		t.Errorf("unexpected merge result %+v", got)
	}
}

func TestMergeMax_OrderIndependent(t *testing.T) {
	lists := [][]Item{
		{hit("a", 0.7), hit("b", 0.5)},
		{hit("b", 0.55), hit("c", 0.9)},
		{hit("a", 0.71), hit("d", 0.5)},
		{hit("d", 0.5), hit("c", 0.2)},
	}
	want := MergeMax(lists...)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		perm := r.Perm(len(lists))
		shuffled := make([][]Item, len(lists))
		for j, p := range perm {
			shuffled[j] = lists[p]
		}
		if got := MergeMax(shuffled...); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %v changed the result:\n got %+v\nwant %+v", perm, got, want)
		}
	}

	// associativity: merging partial merges equals merging everything at once
	left := MergeMax(MergeMax(lists[0], lists[1]), MergeMax(lists[2], lists[3]))
	if !reflect.DeepEqual(left, want) {
		t.Errorf("grouped merge differs:\n got %+v\nwant %+v", left, want)
	}
}

func TestMergeMax_Empty(t *testing.T) {
	if got := MergeMax(); len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFilterMin(t *testing.T) {
	items := []Item{hit("a", 0.9), hit("b", 0.7), hit("c", 0.6), hit("d", 0.4)}
	got := FilterMin(items, 0.6, 0)
	if len(got) != 3 {
		t.Errorf("expected 3 above floor, got %d", len(got))
	}
	got = FilterMin(items, 0.6, 2)
	if len(got) != 2 || got[1].ItemID != "b" {
		t.Errorf("limit not applied: %+v", got)
	}
}

func TestGroupByShop(t *testing.T) {
	items := []Item{
		{ItemID: "a", ShopID: "s1"},
		{ItemID: "b", ShopID: "s2"},
		{ItemID: "c", ShopID: "s1"},
	}
	g := GroupByShop(items)
	if len(g) != 2 || len(g["s1"]) != 2 || g["s1"][1].ItemID != "c" {
		t.Errorf("unexpected grouping %+v", g)
	}
}

func TestFromCatalog_ClampsSimilarity(t *testing.T) {
	it := catalog.Item{ID: "i1", ShopID: "s1", Name: "Milk", PriceCents: 100, IsActive: true}
	if got := FromCatalog(it, 1.3, mode.Text); got.Similarity != 1 || got.Source != mode.Text {
		t.Errorf("got %+v", got)
	}
	if got := FromCatalog(it, -0.2, mode.Category); got.Similarity != 0 {
		t.Errorf("similarity not clamped: %v", got.Similarity)
	}
}
