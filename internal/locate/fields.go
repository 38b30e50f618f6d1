package locate

// Home page search form.
var (
	RoundTrip = Field{
		Name: "roundtrip",
		Candidates: []Candidate{
			Attr("", "data-testid", "search-round-trip-text"),
			Attr("div", "data-testid", "search-round-trip-text"),
			Text("div", "Gidiş-dönüş"),
			Attr("", "data-testid", "enuygun-homepage-flight-roundTripButton"),
			Text("button", "Gidiş-Dönüş"),
			Path("//button[contains(text(), 'Gidiş') and contains(text(), 'Dönüş')]"),
			Text("label", "Gidiş-Dönüş"),
		},
	}

	Origin = Field{
		Name: "origin",
		Candidates: []Candidate{
			Attr("", "data-testid", "enuygun-homepage-flight-origin-autocomplete-input"),
			AttrHas("input", "placeholder", "Kalkış"),
			AttrHas("input", "placeholder", "Nereden"),
			AttrHas("input", "aria-label", "Kalkış"),
			Path("//input[contains(@id, 'origin') or contains(@name, 'origin') or contains(@id, 'Origin')]"),
		},
		Fallback: Positional{Selector: "input[type='text']", Index: 0},
	}

	Destination = Field{
		Name: "destination",
		Candidates: []Candidate{
			Attr("", "data-testid", "enuygun-homepage-flight-destination-autocomplete-input"),
			AttrHas("input", "placeholder", "Varış"),
			AttrHas("input", "placeholder", "Nereye"),
			AttrHas("input", "aria-label", "Varış"),
			Path("//input[contains(@id, 'destination') or contains(@name, 'destination') or contains(@id, 'Destination')]"),
		},
		Fallback: Positional{Selector: "input[type='text']", Index: 1},
	}

	DepartureDate = Field{
		Name: "departure-date",
		Candidates: []Candidate{
			Attr("", "data-testid", "enuygun-homepage-flight-departureDate-input"),
			AttrHas("input", "placeholder", "Gidiş"),
			AttrHas("input", "aria-label", "Gidiş"),
			Path("//input[contains(@id, 'departure') or contains(@name, 'departure') or contains(@id, 'Departure')]"),
		},
		Fallback: Positional{Selector: "input[type='text'], input[type='date']", Index: 2},
	}

	ReturnDate = Field{
		Name: "return-date",
		Candidates: []Candidate{
			Attr("", "data-testid", "enuygun-homepage-flight-returnDate-input"),
			AttrHas("input", "placeholder", "Dönüş"),
			AttrHas("input", "aria-label", "Dönüş"),
			Path("//input[contains(@id, 'return') or contains(@name, 'return') or contains(@id, 'Return')]"),
		},
		Fallback: Positional{Selector: "input[type='text'], input[type='date']", Index: 3},
	}

	Submit = Field{
		Name: "submit",
		Candidates: []Candidate{
			Attr("", "data-testid", "enuygun-homepage-flight-submitButton"),
			Query("[data-testid*='flight'][data-testid*='submit'], [data-testid*='flight-submit']"),
			Query("[data-testid*='flight'] button[type='submit']:not([data-testid*='hotel'])"),
		},
		Fallback: Positional{Selector: "form button[type='submit']", Index: 0},
	}
)

// Cookie banners and popups, tried in order by the home page.
var (
	CookieAccept = []string{
		"xpath=//button[contains(@id,'accept') or contains(@class,'cookie')]",
		"xpath=//button[contains(text(), 'Kabul') or contains(text(), 'Accept')]",
		".onetrust-accept-btn-handler",
		"[data-testid*='cookie'] button",
		"xpath=//div[contains(@class, 'onetrust')]//button",
		"xpath=//button[contains(@class, 'accept')]",
	}

	PopupClose = []string{
		"xpath=//button[contains(@class, 'close') or contains(@aria-label, 'close')]",
		"xpath=//button[text()='×' or text()='✕' or text()='X']",
		".modal-close, .popup-close, .close-btn",
		"xpath=//div[contains(@class, 'modal')]//button[contains(@class, 'close')]",
		"xpath=//div[contains(@class, 'popup')]//button",
	}

	Overlays = ".modal-backdrop, .overlay, .popup-overlay, .onetrust-pc-dark-filter"

	ConsentOverlay = ".onetrust-pc-dark-filter"
)
