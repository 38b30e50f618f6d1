package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/polzovatel/flightcheck/internal/browser"
)

const (
	visibleTextLimit = 1200
	elementLimit     = 200
	keepElements     = 80
)

// Element describes minimal info about an interactive node.
type Element struct {
	Role string `json:"role"`
	Text string `json:"text"`
	Attr string `json:"attr"`
	Sel  string `json:"selector"`
}

// Summary is a compact view of a page at the moment something failed.
type Summary struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Visible  string    `json:"visible"`
	Elements []Element `json:"elements"`
}

const collectScript = `(limit) => {
	const pick = [];
	const nodes = document.querySelectorAll("a,button,input,select,textarea,[role],[data-testid]");
	for (const el of nodes) {
		if (pick.length >= limit) break;
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 && rect.height === 0) continue;
		const role = el.getAttribute("role") || el.tagName.toLowerCase();
		const attrs = ["name","aria-label","placeholder","type","data-testid","class"]
			.map(a => a + ":" + (el.getAttribute(a) || "")).join("|");
		const text = (el.innerText || el.value || "").trim().slice(0, 120);
		let sel = "";
		if (el.id) {
			sel = "#" + el.id;
		} else if (el.getAttribute("data-testid")) {
			sel = "[data-testid=\"" + el.getAttribute("data-testid") + "\"]";
		} else if (el.getAttribute("name")) {
			sel = "[name=\"" + el.getAttribute("name") + "\"]";
		}
		pick.push({role, text, attr: attrs, selector: sel});
	}
	return pick;
}`

const bodyTextScript = `() => (document.body && document.body.innerText) || ""`

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Collect builds a Summary of page. Missing pieces are left empty.
func Collect(ctx context.Context, page browser.Page) (Summary, error) {
	title, _ := page.Title()
	s := Summary{URL: page.URL(), Title: title}

	if v, err := page.Eval(ctx, bodyTextScript, nil); err == nil {
		if text, ok := v.(string); ok {
			s.Visible = truncate(strings.TrimSpace(text), visibleTextLimit)
		}
	}

	val, err := page.Eval(ctx, collectScript, elementLimit)
	if err != nil {
		return s, fmt.Errorf("collect elements: %w", err)
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return s, err
	}
	var elems []Element
	if err := json.Unmarshal(raw, &elems); err != nil {
		return s, err
	}
	s.Elements = rankElements(elems, keepElements)
	return s, nil
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTITLE: %s\nELEMENTS:\n", s.URL, s.Title)
	for i, el := range s.Elements {
		fmt.Fprintf(&b, "%d) role=%s text=%s selector=%s\n", i+1, el.Role, el.Text, el.Sel)
	}
	return b.String()
}

// rankElements keeps the max most useful elements for debugging a broken selector.
func rankElements(elems []Element, max int) []Element {
	type scored struct {
		el    Element
		score int
		pos   int
	}
	out := make([]scored, 0, len(elems))
	for i, el := range elems {
		if sc := scoreElement(el); sc > 0 {
			out = append(out, scored{el: el, score: sc, pos: i})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	if len(out) > max {
		out = out[:max]
	}
	res := make([]Element, 0, len(out))
	for _, s := range out {
		res = append(res, s.el)
	}
	return res
}

func scoreElement(el Element) int {
	score := 0
	attr := strings.ToLower(el.Attr)
	if el.Sel != "" {
		score += 4
	}
	if strings.Contains(attr, "data-testid:") && !strings.Contains(attr, "data-testid:|") {
		score += 3
	}
	switch el.Role {
	case "input", "button", "listbox", "option", "combobox":
		score += 3
	case "":
	default:
		score++
	}
	if n := len(el.Text); n > 0 && n < 200 {
		score += 2
	}
	if len(el.Text) > 500 {
		score -= 3
	}
	return score
}
