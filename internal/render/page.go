package render

import (
	"sort"

	"github.com/terra-clan/compare-engine/internal/compare"
	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/models"
)

// Option is one choice of a settings select
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Settings are the choices offered by the settings bar
type Settings struct {
	Regions   []Option `json:"regions"`
	Languages []Option `json:"languages"`
	Themes    []Option `json:"themes"`
	Types     []Option `json:"types"`
	Metrics   []Option `json:"metrics"`
}

// RegionPrompt asks a first-run client to confirm the detected region
type RegionPrompt struct {
	Region string `json:"region"`
	Text   string `json:"text"`
}

// PageInput is everything a page render reads. Renderers never reach
// outside it.
type PageInput struct {
	Products  []*models.Product
	Types     []string
	Metrics   []string
	Regions   []string
	Languages []string

	State       *compare.State
	Prefs       models.Preferences
	Metric      string
	TableSearch string
	// PendingRegion is set while a detected region awaits confirmation
	PendingRegion string

	Loc i18n.Localizer
}

// Page is the full set of views for one client. It is also the payload of
// the JSON state endpoint and of live pushes.
type Page struct {
	Lang       string             `json:"lang"`
	Title      string             `json:"title"`
	Prefs      models.Preferences `json:"preferences"`
	Settings   Settings           `json:"settings"`
	Prompt     *RegionPrompt      `json:"region_prompt,omitempty"`
	Background BackgroundConfig   `json:"background"`

	Comparison ComparisonView   `json:"comparison"`
	Table      *DirectTableView `json:"direct_table"`
	Ranking    RankingChartView `json:"ranking"`
	Value      ValuePlotView    `json:"value_plot"`
	Data       DataTableView    `json:"data_table"`
	Picker     PickerView       `json:"picker"`
	QuickView  QuickViewView    `json:"quick_view"`

	Loc i18n.Localizer `json:"-"`
}

// BuildPage projects the input into every view
func BuildPage(in PageInput) Page {
	loc := in.Loc
	slots := in.State.Slots()
	region := in.Prefs.Region
	filter := in.State.TypeFilter()

	page := Page{
		Lang:       loc.Lang,
		Title:      loc.T("app.title"),
		Prefs:      in.Prefs,
		Settings:   buildSettings(in),
		Background: Background(in.Prefs.ResolvedTheme),
		Comparison: Comparison(slots, region, loc),
		Table:      DirectTable(slots, region, loc),
		Ranking:    RankingChart(in.Products, filter, in.Metric, loc),
		Value:      ValuePlot(in.Products, filter, loc),
		Data:       DataTable(in.Products, filter, in.TableSearch, loc),
		Picker:     Picker(in.Products, in.State, loc),
		Loc:        loc,
	}

	if in.State.QuickView.Open {
		page.QuickView = QuickView(findProduct(in.Products, in.State.QuickView.ProductID), region, loc)
	}
	if in.PendingRegion != "" {
		page.Prompt = &RegionPrompt{
			Region: in.PendingRegion,
			Text:   loc.Tf("region.prompt", loc.RegionName(in.PendingRegion)),
		}
	}
	return page
}

func findProduct(products []*models.Product, id int) *models.Product {
	for _, p := range products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func buildSettings(in PageInput) Settings {
	loc := in.Loc
	var s Settings

	regions := append([]string(nil), in.Regions...)
	if !contains(regions, in.Prefs.Region) {
		regions = append(regions, in.Prefs.Region)
		sort.Strings(regions)
	}
	for _, r := range regions {
		s.Regions = append(s.Regions, Option{Value: r, Label: loc.RegionName(r), Selected: r == in.Prefs.Region})
	}

	for _, l := range in.Languages {
		s.Languages = append(s.Languages, Option{Value: l, Label: i18n.LanguageName(l), Selected: l == in.Prefs.Language})
	}

	for _, t := range []models.Theme{models.ThemeSystem, models.ThemeLight, models.ThemeDark} {
		s.Themes = append(s.Themes, Option{Value: string(t), Label: loc.T("theme." + string(t)), Selected: t == in.Prefs.Theme})
	}

	filter := in.State.TypeFilter()
	s.Types = append(s.Types, Option{Value: models.FilterAll, Label: loc.T("filter.all"), Selected: filter == models.FilterAll})
	for _, t := range in.Types {
		s.Types = append(s.Types, Option{Value: t, Label: TypeLabel(loc, models.ProductType(t)), Selected: t == filter})
	}

	metric := in.Metric
	if metric == "" {
		metric = models.MetricPrice
	}
	for _, m := range in.Metrics {
		s.Metrics = append(s.Metrics, Option{Value: m, Label: MetricLabel(loc, m), Selected: m == metric})
	}
	return s
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
