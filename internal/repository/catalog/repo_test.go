package catalog

import (
	"errors"
	"testing"

	domcat "github.com/kailas-cloud/shopassist/internal/domain/catalog"
)

type fakeRow struct {
	vals []any
	err  error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = f.vals[i].(string)
		case *float64:
			*p = f.vals[i].(float64)
		case *int64:
			*p = f.vals[i].(int64)
		case *bool:
			*p = f.vals[i].(bool)
		case *[]byte:
			*p = f.vals[i].([]byte)
		}
	}
	return nil
}

func TestScanShop_DecodesSchedule(t *testing.T) {
	row := fakeRow{vals: []any{
		"s1", "Corner Store", "Main St", 24.86, 67.0, int64(50000), true,
		[]byte(`{"timezone":"Asia/Karachi","hours":{"monday":[{"open":"09:00","close":"21:00"}]},"holidays":["2026-03-23"]}`),
	}}

	s, err := scanShop(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "s1" || s.Location.Lat != 24.86 || s.MinimumOrderCents != 50000 || !s.AcceptingOrders {
		t.Errorf("columns not mapped: %+v", s)
	}
	if s.Schedule.Timezone != "Asia/Karachi" || len(s.Schedule.Hours["monday"]) != 1 || len(s.Schedule.Holidays) != 1 {
		t.Errorf("schedule not decoded: %+v", s.Schedule)
	}
}

func TestScanShop_BadSchedule(t *testing.T) {
	row := fakeRow{vals: []any{"s1", "x", "", 0.0, 0.0, int64(0), true, []byte(`{not json`)}}
	if _, err := scanShop(row); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestScanShop_PropagatesScanError(t *testing.T) {
	want := errors.New("scan failed")
	if _, err := scanShop(fakeRow{err: want}); !errors.Is(err, want) {
		t.Errorf("expected scan error, got %v", err)
	}
}

func TestScanItem(t *testing.T) {
	row := fakeRow{vals: []any{"i1", "s1", "c1", "Milk", "1L", "http://img", int64(25000), true}}
	it, err := scanItem(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domcat.Item{ID: "i1", ShopID: "s1", CategoryID: "c1", Name: "Milk", Description: "1L",
		ImageURL: "http://img", PriceCents: 25000, IsActive: true}
	if it != want {
		t.Errorf("got %+v, want %+v", it, want)
	}
}

func TestDecodeSchedule_Empty(t *testing.T) {
	var sc domcat.Schedule
	if err := decodeSchedule(nil, &sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sc.Hours) != 0 {
		t.Error("empty input should leave the schedule empty")
	}
}
