package autocomplete

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/polzovatel/flightcheck/internal/browser/browsertest"
)

func listPage(items ...*browsertest.Element) *browsertest.Page {
	box := browsertest.NewElement("listbox", "").WithChild(Items, items...)
	return browsertest.NewPage("https://www.enuygun.com/").Add(Containers[0], box)
}

func TestSelectPrefersMatchingItem(t *testing.T) {
	first := browsertest.NewElement("first", "Ankara, Esenboğa Havalimanı")
	match := browsertest.NewElement("match", "İstanbul, Tüm Havalimanları")
	page := listPage(first, match)
	input := browsertest.NewElement("origin", "")

	got := New(0, zerolog.Nop()).Select(context.Background(), page, input, "istanbul", 0)
	if got.Kind != Matched || got.Text != "İstanbul, Tüm Havalimanları" {
		t.Fatalf("Select = %+v", got)
	}
	if first.Called("click") || !match.Called("click") {
		t.Fatal("wrong item clicked")
	}
	if input.Called("press") {
		t.Fatal("Enter sent despite a match")
	}
}

func TestSelectItemContainedInQuery(t *testing.T) {
	item := browsertest.NewElement("item", "Antalya")
	page := listPage(browsertest.NewElement("other", "Adana"), item)

	got := New(0, zerolog.Nop()).Select(context.Background(), page, browsertest.NewElement("in", ""), "Antalya Havalimanı", 0)
	if got.Kind != Matched || !item.Called("click") {
		t.Fatalf("Select = %+v", got)
	}
}

func TestSelectSynonym(t *testing.T) {
	other := browsertest.NewElement("other", "Lefke, Kıbrıs")
	ercan := browsertest.NewElement("ercan", "Ercan Havalimanı (ECN)")
	page := listPage(other, ercan)

	got := New(0, zerolog.Nop()).Select(context.Background(), page, browsertest.NewElement("in", ""), "Lefkoşa", 0)
	if got.Kind != Matched || !ercan.Called("click") {
		t.Fatalf("Select = %+v", got)
	}
}

func TestSelectFallsBackToFirstItem(t *testing.T) {
	first := browsertest.NewElement("first", "Berlin")
	page := listPage(first, browsertest.NewElement("second", "Paris"))
	input := browsertest.NewElement("in", "")

	got := New(0, zerolog.Nop()).Select(context.Background(), page, input, "Lefkoşa", 0)
	if got.Kind != FirstItem || got.Text != "Berlin" || !first.Called("click") {
		t.Fatalf("Select = %+v", got)
	}
	if input.Called("press") {
		t.Fatal("Enter sent despite a first item")
	}
}

func TestSelectEmptyListSendsEnter(t *testing.T) {
	page := listPage()
	input := browsertest.NewElement("in", "")

	got := New(0, zerolog.Nop()).Select(context.Background(), page, input, "Lefkoşa", 0)
	if got.Kind != EnterKey {
		t.Fatalf("Select = %+v", got)
	}
	if !input.Called("press:Enter") {
		t.Fatalf("calls = %v", input.Calls)
	}
}

func TestSelectNoContainerSendsEnter(t *testing.T) {
	page := browsertest.NewPage("https://www.enuygun.com/")
	input := browsertest.NewElement("in", "")

	got := New(0, zerolog.Nop()).Select(context.Background(), page, input, "Ankara", 0)
	if got.Kind != EnterKey || !input.Called("press:Enter") {
		t.Fatalf("Select = %+v, calls %v", got, input.Calls)
	}
	if len(page.Waited) != len(Containers) {
		t.Fatalf("waited %v, want every container pattern", page.Waited)
	}
}

func TestSelectNeverFailsWhenEnterFails(t *testing.T) {
	input := &browsertest.Element{Detached: true}
	got := New(0, zerolog.Nop()).Select(context.Background(), browsertest.NewPage("about:blank"), input, "x", 0)
	if got.Kind != EnterKey {
		t.Fatalf("Select = %+v", got)
	}
}

func TestMatches(t *testing.T) {
	d := New(0, zerolog.Nop())
	cases := []struct {
		item, query string
		want        bool
	}{
		{"İSTANBUL", "istanbul", true},
		{"Iğdır", "ığdır", true},
		{"Nicosia", "Lefkosa", true},
		{"Ercan", "Ankara", false},
		{"", "Ankara", false},
		{"Esenboğa", "ankara", true},
		{"Izmir", "Antalya", false},
	}
	for _, tc := range cases {
		if got := d.Matches(tc.item, tc.query); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.item, tc.query, got, tc.want)
		}
	}
}
