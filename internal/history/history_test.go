package history

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tg_rss_bot/internal/model"
)

func items(ids ...string) []model.FeedItem {
	out := make([]model.FeedItem, len(ids))
	for i, id := range ids {
		out[i] = model.FeedItem{Title: "Item " + id, Link: "https://example.com/" + id, ID: id}
	}
	return out
}

func ids(items []model.FeedItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		prior     []string
		items     []model.FeedItem
		firstPoll bool
		wantNew   []string
		wantSeen  []string
	}{
		{
			name:      "first poll seeds without notifying",
			items:     items("a", "b"),
			firstPoll: true,
			wantNew:   nil,
			wantSeen:  []string{"a", "b"},
		},
		{
			name:     "new item at the top",
			prior:    []string{"a", "b"},
			items:    items("c", "a", "b"),
			wantNew:  []string{"c"},
			wantSeen: []string{"c", "a", "b"},
		},
		{
			name:     "nothing new",
			prior:    []string{"a", "b"},
			items:    items("a", "b"),
			wantNew:  nil,
			wantSeen: []string{"a", "b"},
		},
		{
			name:     "reordered feed keeps history",
			prior:    []string{"a", "b", "c"},
			items:    items("b", "a"),
			wantNew:  nil,
			wantSeen: []string{"b", "a", "c"},
		},
		{
			name:     "feed order preserved for several new items",
			prior:    []string{"x"},
			items:    items("c", "x", "b", "a"),
			wantNew:  []string{"c", "b", "a"},
			wantSeen: []string{"c", "x", "b", "a"},
		},
		{
			name:     "empty identifiers collapse to one entry",
			prior:    []string{"a"},
			items:    items("", "", "a"),
			wantNew:  []string{""},
			wantSeen: []string{"", "a"},
		},
		{
			name:     "recorded empty identifier is never new again",
			prior:    []string{"", "a"},
			items:    items("", "a"),
			wantNew:  nil,
			wantSeen: []string{"", "a"},
		},
		{
			name:     "duplicate ids within one fetch count once",
			prior:    nil,
			items:    items("a", "a", "b"),
			wantNew:  []string{"a", "b"},
			wantSeen: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotNew, gotSeen := Detect(tt.prior, tt.items, tt.firstPoll)
			if diff := cmp.Diff(tt.wantNew, ids(gotNew)); diff != "" {
				t.Errorf("new items mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSeen, gotSeen); diff != "" {
				t.Errorf("seen ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	prior := []string{"a", "b"}
	fetched := items("d", "c", "a")

	new1, seen1 := Detect(prior, fetched, false)
	new2, seen2 := Detect(prior, fetched, false)

	if diff := cmp.Diff(new1, new2); diff != "" {
		t.Errorf("new items differ between calls (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(seen1, seen2); diff != "" {
		t.Errorf("seen ids differ between calls (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, prior); diff != "" {
		t.Errorf("prior was mutated (-want +got):\n%s", diff)
	}
}

func TestDetectBoundsHistory(t *testing.T) {
	var seen []string
	for cycle := 0; cycle < 10; cycle++ {
		var batch []string
		for i := 0; i < 20; i++ {
			batch = append(batch, fmt.Sprintf("c%d-i%d", cycle, i))
		}
		_, seen = Detect(seen, items(batch...), cycle == 0)
		if len(seen) > Capacity {
			t.Fatalf("cycle %d: history has %d entries, capacity is %d", cycle, len(seen), Capacity)
		}
	}
	if diff := cmp.Diff("c9-i0", seen[0]); diff != "" {
		t.Errorf("newest entry (-want +got):\n%s", diff)
	}
}

func TestDetectIgnoresTailPastCapacity(t *testing.T) {
	var long []string
	for i := 0; i < Capacity+10; i++ {
		long = append(long, fmt.Sprintf("i%d", i))
	}
	fetched := items(long...)

	_, seen := Detect(nil, fetched, true)
	gotNew, _ := Detect(seen, fetched, false)
	if len(gotNew) != 0 {
		t.Errorf("expected no new items on an unchanged long feed, got %v", ids(gotNew))
	}
}

func TestNoDuplicateNotification(t *testing.T) {
	polls := [][]string{
		{"a", "b"},
		{"c", "a", "b"},
		{"c", "a"},
		{"d", "c", "b", "a"},
		{"d", "c"},
	}

	var seen []string
	notified := map[string]int{}
	for i, p := range polls {
		var fresh []model.FeedItem
		fresh, seen = Detect(seen, items(p...), i == 0)
		for _, it := range fresh {
			notified[it.ID]++
		}
	}

	want := map[string]int{"c": 1, "d": 1}
	if diff := cmp.Diff(want, notified); diff != "" {
		t.Errorf("notification counts (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	var prior []string
	for i := 0; i < Capacity; i++ {
		prior = append(prior, fmt.Sprintf("old%d", i))
	}
	got := Merge([]string{"new", "old0"}, prior)

	if diff := cmp.Diff(Capacity, len(got)); diff != "" {
		t.Errorf("length (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"new", "old0", "old1"}, got[:3]); diff != "" {
		t.Errorf("head (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fmt.Sprintf("old%d", Capacity-2), got[Capacity-1]); diff != "" {
		t.Errorf("oldest entries should be evicted first (-want +got):\n%s", diff)
	}
}

func TestSeed(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b"}, Seed(items("a", "b"))); diff != "" {
		t.Errorf("Seed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{}, Seed(nil)); diff != "" {
		t.Errorf("Seed(nil) mismatch (-want +got):\n%s", diff)
	}
}
