// Package history decides which feed items are new for a subscription and
// maintains its bounded list of seen item identifiers.
package history

import "tg_rss_bot/internal/model"

// Capacity is the maximum number of item identifiers kept per subscription.
const Capacity = 50

// Detect compares freshly fetched items against the seen identifiers of a
// subscription. It returns the items that were not seen before, in feed
// order, and the updated history, newest first.
//
// On the first poll nothing is reported as new; the history is only seeded.
// Only the first Capacity distinct identifiers of a fetch are considered, so
// the tail of a long feed is never announced. Items repeating an identifier
// within the same fetch count once, which also collapses all items without
// an identifier into a single history entry.
func Detect(prior []string, items []model.FeedItem, firstPoll bool) ([]model.FeedItem, []string) {
	seen := make(map[string]struct{}, len(prior))
	for _, id := range prior {
		seen[id] = struct{}{}
	}

	var fresh []model.FeedItem
	current := make([]string, 0, min(len(items), Capacity))
	inFetch := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := inFetch[item.ID]; dup {
			continue
		}
		if len(current) == Capacity {
			break
		}
		inFetch[item.ID] = struct{}{}
		current = append(current, item.ID)

		if firstPoll {
			continue
		}
		if _, ok := seen[item.ID]; !ok {
			fresh = append(fresh, item)
		}
	}

	return fresh, Merge(current, prior)
}

// Seed returns the history a new subscription starts with.
func Seed(items []model.FeedItem) []string {
	_, ids := Detect(nil, items, true)
	return ids
}

// Merge prepends ids to prior, drops duplicates keeping the first
// occurrence, and truncates the result to Capacity.
func Merge(ids, prior []string) []string {
	out := make([]string, 0, min(len(ids)+len(prior), Capacity))
	set := make(map[string]struct{}, cap(out))
	for _, list := range [][]string{ids, prior} {
		for _, id := range list {
			if len(out) == Capacity {
				return out
			}
			if _, ok := set[id]; ok {
				continue
			}
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
