package search

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/and161185/recipebook/internal/model"
)

func items(names ...string) []model.Item {
	out := make([]model.Item, len(names))
	for i, n := range names {
		out[i] = model.Item{ID: n, Name: n}
	}
	return out
}

func names(list []model.Item) string {
	s := make([]string, len(list))
	for i, it := range list {
		s[i] = it.Name
	}
	return strings.Join(s, ",")
}

func TestItems_CaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()
	list := items("Phở Bò", "Bún chả", "phở gà", "Cà phê")
	if got := names(Items(list, "PHỞ")); got != "Phở Bò,phở gà" {
		t.Fatalf("got %q", got)
	}
	if got := names(Items(list, "")); got != names(list) {
		t.Fatalf("empty query must return everything, got %q", got)
	}
	if got := Items(list, "pizza"); len(got) != 0 {
		t.Fatalf("want no matches, got %q", names(got))
	}
}

func TestItems_ExactSetAndIdempotent(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))
	alphabet := []rune("abAB ở")
	word := func(n int) string {
		r := make([]rune, n)
		for i := range r {
			r[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(r)
	}
	for round := 0; round < 200; round++ {
		list := make([]model.Item, rng.Intn(6))
		for i := range list {
			list[i] = model.Item{ID: word(3), Name: word(1 + rng.Intn(5))}
		}
		q := word(rng.Intn(3))
		got := Items(list, q)

		var want []model.Item
		for _, it := range list {
			if strings.Contains(strings.ToLower(it.Name), strings.ToLower(q)) {
				want = append(want, it)
			}
		}
		if names(got) != names(want) {
			t.Fatalf("q=%q: got %q want %q", q, names(got), names(want))
		}
		if names(Items(got, q)) != names(got) {
			t.Fatalf("q=%q: filter not idempotent", q)
		}
	}
}

func TestLive_NewSnapshotUsesCurrentQuery(t *testing.T) {
	t.Parallel()
	l := NewLive(ItemName)
	l.SetSnapshot(items("Phở", "Bún"))
	if got := names(l.SetQuery("ph")); got != "Phở" {
		t.Fatalf("after query: %q", got)
	}
	// background update while the query is active
	got := l.SetSnapshot(items("Phở", "Bún", "Phô mai"))
	if names(got) != "Phở,Phô mai" {
		t.Fatalf("stale results after snapshot: %q", names(got))
	}
	if names(l.Results()) != "Phở,Phô mai" || l.Query() != "ph" {
		t.Fatalf("Results/Query out of sync")
	}
	if got := l.SetQuery(""); len(got) != 3 {
		t.Fatalf("clearing the query must show the latest snapshot, got %q", names(got))
	}
}

func TestSuggest_RanksFuzzyMatches(t *testing.T) {
	t.Parallel()
	list := items("Bánh mì", "Bún bò Huế", "Cơm tấm")
	got := Suggest(list, "bnhm", ItemName, 2)
	if len(got) == 0 || got[0].Name != "Bánh mì" {
		t.Fatalf("want Bánh mì first, got %q", names(got))
	}
	if Suggest(list, "", ItemName, 2) != nil {
		t.Fatalf("empty query gives no suggestions")
	}
	l := NewLive(ItemName)
	l.SetSnapshot(list)
	l.SetQuery("cmtm")
	if s := l.Suggest(1); len(s) != 1 || s[0].Name != "Cơm tấm" {
		t.Fatalf("Live.Suggest=%q", names(s))
	}
}
