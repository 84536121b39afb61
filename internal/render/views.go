package render

import (
	"html/template"
	"sort"
	"strconv"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/terra-clan/compare-engine/internal/catalog"
	"github.com/terra-clan/compare-engine/internal/compare"
	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/models"
)

// Ranking chart canvas sizing. Height grows linearly with the bar count so
// every label stays readable without scrolling inside the canvas.
const (
	ChartBaseHeight = 120
	ChartRowHeight  = 36
)

// Fuzzy suggestion tuning for the picker
const (
	SuggestionThreshold = 0.8
	MaxSuggestions      = 3
)

// Spec labels shown as data table columns
const (
	SpecNoiseCancellation = "Noise Cancellation"
	SpecSound             = "Sound"
	SpecWaterResistance   = "Water Resistance"
)

// PriceView is one formatted store offer
type PriceView struct {
	Store    string  `json:"store"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Display  string  `json:"display"`
	Link     string  `json:"link"`
}

// Card is one comparison slot. Placeholder cards invite a selection.
type Card struct {
	Slot        int                `json:"slot"`
	Placeholder bool               `json:"placeholder"`
	ProductID   int                `json:"product_id,omitempty"`
	Name        string             `json:"name,omitempty"`
	Image       string             `json:"image,omitempty"`
	Specs       []models.SpecEntry `json:"specs,omitempty"`
	Prices      []PriceView        `json:"prices,omitempty"`
	NoPricing   string             `json:"no_pricing,omitempty"`
}

// ComparisonView is the card grid
type ComparisonView struct {
	Cards []Card `json:"cards"`
}

// Comparison renders one card per slot. When the final slot is filled an
// extra placeholder is appended so the comparison can grow.
func Comparison(slots []*models.Product, region string, loc i18n.Localizer) ComparisonView {
	view := ComparisonView{Cards: make([]Card, 0, len(slots)+1)}
	for i, p := range slots {
		if p == nil {
			view.Cards = append(view.Cards, Card{Slot: i, Placeholder: true})
			continue
		}
		card := Card{
			Slot:      i,
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Specs:     append([]models.SpecEntry(nil), p.Specs...),
			Prices:    priceViews(p, region, loc),
		}
		if len(card.Prices) == 0 {
			card.NoPricing = loc.T("price.none")
		}
		view.Cards = append(view.Cards, card)
	}
	if n := len(slots); n > 0 && slots[n-1] != nil {
		view.Cards = append(view.Cards, Card{Slot: n, Placeholder: true})
	}
	return view
}

func priceViews(p *models.Product, region string, loc i18n.Localizer) []PriceView {
	sorted := p.SortedPrices(region)
	if len(sorted) == 0 {
		return nil
	}
	out := make([]PriceView, len(sorted))
	for i, e := range sorted {
		out[i] = PriceView{
			Store:    e.Store,
			Price:    e.Price,
			Currency: e.Currency,
			Display:  FormatPrice(loc, e.Price, e.Currency),
			Link:     e.Link,
		}
	}
	return out
}

// TableRow is one feature row of the direct comparison table
type TableRow struct {
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

// DirectTableView is the feature by product matrix
type DirectTableView struct {
	Products []string   `json:"products"`
	Rows     []TableRow `json:"rows"`
}

// DirectTable builds the feature matrix for the filled slots. Row 0 is the
// lowest regional price; the remaining rows follow the spec labels of the
// first compared product, with N/A where another product lacks the label.
// It returns nil when nothing is selected.
func DirectTable(slots []*models.Product, region string, loc i18n.Localizer) *DirectTableView {
	var selected []*models.Product
	for _, p := range slots {
		if p != nil {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	na := loc.T("table.na")
	view := &DirectTableView{}
	priceRow := TableRow{Label: loc.T("price.row")}
	for _, p := range selected {
		view.Products = append(view.Products, p.Name)
		cell := na
		if low, ok := p.LowestPrice(region); ok {
			cell = FormatPrice(loc, low.Price, low.Currency)
		}
		priceRow.Cells = append(priceRow.Cells, cell)
	}
	view.Rows = append(view.Rows, priceRow)

	for _, label := range selected[0].Specs.Labels() {
		row := TableRow{Label: label}
		for _, p := range selected {
			v, ok := p.Specs.Lookup(label)
			if !ok {
				v = na
			}
			row.Cells = append(row.Cells, v)
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// ChartData is what the charting engine consumes for a bar chart
type ChartData struct {
	Labels       []string  `json:"labels"`
	Values       []float64 `json:"values"`
	DatasetLabel string    `json:"datasetLabel"`
}

// RankingChartView is the ranking bar chart. Items is the exact ordered
// slice the chart was built from; clicks resolve through it.
type RankingChartView struct {
	Metric string            `json:"metric"`
	Data   ChartData         `json:"data"`
	Height int               `json:"height"`
	Items  []*models.Product `json:"-"`
}

// RankingChart filters products by type, drops those without the metric and
// sorts them: ascending for price, descending for every other metric.
func RankingChart(products []*models.Product, filter, metric string, loc i18n.Localizer) RankingChartView {
	if metric == "" {
		metric = models.MetricPrice
	}
	items := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if !p.MatchesFilter(filter) {
			continue
		}
		if _, ok := p.Score(metric); ok {
			items = append(items, p)
		}
	}

	asc := models.MetricAscending(metric)
	sort.SliceStable(items, func(i, j int) bool {
		a, _ := items[i].Score(metric)
		b, _ := items[j].Score(metric)
		if asc {
			return a < b
		}
		return a > b
	})

	view := RankingChartView{
		Metric: metric,
		Data: ChartData{
			Labels:       make([]string, len(items)),
			Values:       make([]float64, len(items)),
			DatasetLabel: MetricLabel(loc, metric),
		},
		Height: ChartBaseHeight + ChartRowHeight*len(items),
		Items:  items,
	}
	for i, p := range items {
		view.Data.Labels[i] = p.Name
		view.Data.Values[i], _ = p.Score(metric)
	}
	return view
}

// MetricLabel returns the localized metric name, or the raw key
func MetricLabel(loc i18n.Localizer, metric string) string {
	return loc.TOr("metric."+metric, metric)
}

// Point is one scatter plot point
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// ValuePlotView is the price/sound scatter plot. Items[i] backs Points[i].
type ValuePlotView struct {
	Points []Point           `json:"points"`
	XLabel string            `json:"xLabel"`
	YLabel string            `json:"yLabel"`
	Items  []*models.Product `json:"-"`
}

// ValuePlot plots price score against sound score for the filtered
// products. Products missing either score are left out.
func ValuePlot(products []*models.Product, filter string, loc i18n.Localizer) ValuePlotView {
	view := ValuePlotView{
		Points: []Point{},
		XLabel: loc.T("chart.axis.price"),
		YLabel: loc.T("chart.axis.sound"),
	}
	for _, p := range products {
		if !p.MatchesFilter(filter) {
			continue
		}
		x, okX := p.Score(models.MetricPrice)
		y, okY := p.Score(models.MetricSound)
		if !okX || !okY {
			continue
		}
		view.Points = append(view.Points, Point{X: x, Y: y, Label: p.Name})
		view.Items = append(view.Items, p)
	}
	return view
}

// DataRow is one row of the product data table
type DataRow struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	NoiseCancellation string `json:"noise_cancellation"`
	Sound             string `json:"sound"`
	WaterResistance   string `json:"water_resistance"`
	PriceScore        string `json:"price_score"`
}

// DataTableView is the searchable product table
type DataTableView struct {
	Columns []string  `json:"columns"`
	Rows    []DataRow `json:"rows"`
	Search  string    `json:"search"`
}

// DataTable filters by type, then by case-insensitive name substring
func DataTable(products []*models.Product, filter, search string, loc i18n.Localizer) DataTableView {
	na := loc.T("table.na")
	spec := func(p *models.Product, label string) string {
		if v, ok := p.Specs.Lookup(label); ok {
			return v
		}
		return na
	}

	view := DataTableView{
		Columns: []string{
			loc.T("datatable.name"),
			loc.T("datatable.type"),
			loc.T("datatable.noise"),
			loc.T("datatable.sound"),
			loc.T("datatable.water"),
			loc.T("datatable.price_score"),
		},
		Rows:   []DataRow{},
		Search: search,
	}

	var typed []*models.Product
	for _, p := range products {
		if p.MatchesFilter(filter) {
			typed = append(typed, p)
		}
	}
	for _, p := range catalog.MatchName(typed, search) {
		score := na
		if v, ok := p.Score(models.MetricPrice); ok {
			score = strconv.FormatFloat(v, 'f', -1, 64)
		}
		view.Rows = append(view.Rows, DataRow{
			ID:                p.ID,
			Name:              p.Name,
			Type:              TypeLabel(loc, p.Type),
			NoiseCancellation: spec(p, SpecNoiseCancellation),
			Sound:             spec(p, SpecSound),
			WaterResistance:   spec(p, SpecWaterResistance),
			PriceScore:        score,
		})
	}
	return view
}

// TypeLabel returns the localized product type, or "" for untyped products
func TypeLabel(loc i18n.Localizer, t models.ProductType) string {
	if t == "" {
		return ""
	}
	return loc.TOr("type."+string(t), string(t))
}

// PickerItem is one product in the picker list
type PickerItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Type     string `json:"type"`
	Disabled bool   `json:"disabled"`
}

// Suggestion is a fuzzy "did you mean" entry
type Suggestion struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// PickerView is the product picker overlay
type PickerView struct {
	Open        bool         `json:"open"`
	ActiveSlot  int          `json:"active_slot"`
	Search      string       `json:"search"`
	Items       []PickerItem `json:"items"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Picker lists the products matching the active type filter and search
// term. Products selected in another slot are listed but disabled. When
// the search matches nothing, close names are offered as suggestions.
func Picker(products []*models.Product, state *compare.State, loc i18n.Localizer) PickerView {
	view := PickerView{
		Open:       state.Picker.Open,
		ActiveSlot: state.Picker.ActiveSlot,
		Search:     state.Picker.Search,
		Items:      []PickerItem{},
	}
	if !view.Open {
		return view
	}

	var typed []*models.Product
	for _, p := range products {
		if p.MatchesFilter(state.TypeFilter()) {
			typed = append(typed, p)
		}
	}

	for _, p := range catalog.MatchName(typed, view.Search) {
		at := state.SlotOf(p.ID)
		view.Items = append(view.Items, PickerItem{
			ID:       p.ID,
			Name:     p.Name,
			Image:    p.Image,
			Type:     TypeLabel(loc, p.Type),
			Disabled: at >= 0 && at != view.ActiveSlot,
		})
	}

	if len(view.Items) == 0 && strings.TrimSpace(view.Search) != "" {
		view.Suggestions = Suggest(typed, view.Search)
	}
	return view
}

// Suggest ranks products by Jaro-Winkler similarity between term and the
// best matching word of their name.
func Suggest(products []*models.Product, term string) []Suggestion {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	jw := metrics.NewJaroWinkler()

	var out []Suggestion
	for _, p := range products {
		name := strings.ToLower(p.Name)
		best := strutil.Similarity(term, name, jw)
		for _, word := range strings.Fields(name) {
			if s := strutil.Similarity(term, word, jw); s > best {
				best = s
			}
		}
		if best >= SuggestionThreshold {
			out = append(out, Suggestion{ID: p.ID, Name: p.Name, Score: best})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// QuickViewView is the product detail overlay
type QuickViewView struct {
	Open        bool               `json:"open"`
	ProductID   int                `json:"product_id,omitempty"`
	Name        string             `json:"name,omitempty"`
	Image       string             `json:"image,omitempty"`
	Type        string             `json:"type,omitempty"`
	Specs       []models.SpecEntry `json:"specs,omitempty"`
	Prices      []PriceView        `json:"prices,omitempty"`
	Lowest      *PriceView         `json:"lowest,omitempty"`
	NoPricing   string             `json:"no_pricing,omitempty"`
	Description template.HTML      `json:"description_html,omitempty"`
}

// QuickView renders the product detail overlay; a nil product is closed
func QuickView(p *models.Product, region string, loc i18n.Localizer) QuickViewView {
	if p == nil {
		return QuickViewView{}
	}
	view := QuickViewView{
		Open:        true,
		ProductID:   p.ID,
		Name:        p.Name,
		Image:       p.Image,
		Type:        TypeLabel(loc, p.Type),
		Specs:       append([]models.SpecEntry(nil), p.Specs...),
		Prices:      priceViews(p, region, loc),
		Description: Markdown(p.Description),
	}
	if len(view.Prices) == 0 {
		view.NoPricing = loc.T("price.none")
	} else {
		lowest := view.Prices[0]
		view.Lowest = &lowest
	}
	return view
}

// BackgroundConfig is the static particle background configuration
type BackgroundConfig struct {
	Theme         models.Theme `json:"theme"`
	ParticleColor string       `json:"particleColor"`
	LinkColor     string       `json:"linkColor"`
	LinkDistance  int          `json:"linkDistance"`
	Opacity       float64      `json:"opacity"`
	Count         int          `json:"count"`
	Speed         float64      `json:"speed"`
}

// Background returns the particle configuration for a resolved theme
func Background(theme models.Theme) BackgroundConfig {
	cfg := BackgroundConfig{
		Theme:         models.ThemeLight,
		ParticleColor: "#555555",
		LinkColor:     "#555555",
		LinkDistance:  150,
		Opacity:       0.2,
		Count:         80,
		Speed:         1,
	}
	if theme == models.ThemeDark {
		cfg.Theme = models.ThemeDark
		cfg.ParticleColor = "#cccccc"
		cfg.LinkColor = "#cccccc"
	}
	return cfg
}
