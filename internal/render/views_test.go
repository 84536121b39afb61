package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compare-engine/internal/compare"
	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/models"
)

func english(t *testing.T) i18n.Localizer {
	t.Helper()
	b, err := i18n.LoadEmbedded("en", nil)
	require.NoError(t, err)
	return b.For("en")
}

func specs(pairs ...string) models.Specs {
	var s models.Specs
	for i := 0; i+1 < len(pairs); i += 2 {
		s = append(s, models.SpecEntry{Label: pairs[i], Value: pairs[i+1]})
	}
	return s
}

func fixture() []*models.Product {
	return []*models.Product{
		{
			ID: 1, Name: "Sony WF-1000XM5", Type: models.TypeEarbud,
			Specs:  specs("Noise Cancellation", "Industry-leading", "Sound", "Hi-Res", "Battery Life", "8h"),
			Scores: map[string]float64{"price": 6.5, "sound_score": 9.4},
			RegionalPrices: map[string][]models.PriceEntry{
				"US": {
					{Store: "Amazon", Price: 279.99, Currency: "USD", Link: "https://amazon.example/sony"},
					{Store: "BestBuy", Price: 249.99, Currency: "USD", Link: "https://bestbuy.example/sony"},
				},
			},
		},
		{
			ID: 2, Name: "Bose QC II", Type: models.TypeEarbud,
			Specs:  specs("Sound", "Balanced", "Noise Cancellation", "Excellent"),
			Scores: map[string]float64{"price": 6.0, "sound_score": 8.8},
			RegionalPrices: map[string][]models.PriceEntry{
				"DE": {{Store: "MediaMarkt", Price: 229, Currency: "EUR", Link: "https://mm.example/bose"}},
			},
		},
		{
			ID: 3, Name: "Sony WH-1000XM5", Type: models.TypeHeadphone,
			Specs:  specs("Noise Cancellation", "Excellent", "Water Resistance", "None"),
			Scores: map[string]float64{"price": 5.5},
		},
	}
}

func TestRankingChartScenarioA(t *testing.T) {
	t.Parallel()

	products := []*models.Product{
		{ID: 1, Name: "X", Scores: map[string]float64{"price": 100}},
		{ID: 2, Name: "Y", Scores: map[string]float64{"price": 50}},
	}
	view := RankingChart(products, models.FilterAll, "price", english(t))
	require.Equal(t, []string{"Y", "X"}, view.Data.Labels)
	require.Equal(t, []float64{50, 100}, view.Data.Values)
	require.Equal(t, 2, view.Items[0].ID)
	require.Equal(t, "Price", view.Data.DatasetLabel)
}

func TestRankingChartSortingLaw(t *testing.T) {
	t.Parallel()

	loc := english(t)
	products := fixture()

	price := RankingChart(products, models.FilterAll, "price", loc)
	require.Len(t, price.Items, 3)
	for i := 1; i < len(price.Data.Values); i++ {
		require.LessOrEqual(t, price.Data.Values[i-1], price.Data.Values[i])
	}

	sound := RankingChart(products, models.FilterAll, "sound_score", loc)
	// the headphone has no sound score and is dropped
	require.Len(t, sound.Items, 2)
	for i := 1; i < len(sound.Data.Values); i++ {
		require.GreaterOrEqual(t, sound.Data.Values[i-1], sound.Data.Values[i])
	}

	for i, p := range sound.Items {
		require.Equal(t, p.Name, sound.Data.Labels[i])
	}
}

func TestRankingChartHeightScalesLinearly(t *testing.T) {
	t.Parallel()

	loc := english(t)
	products := fixture()

	all := RankingChart(products, models.FilterAll, "price", loc)
	earbuds := RankingChart(products, "earbud", "price", loc)
	none := RankingChart(products, "speaker", "price", loc)

	require.Equal(t, ChartBaseHeight, none.Height)
	require.Equal(t, ChartBaseHeight+2*ChartRowHeight, earbuds.Height)
	require.Equal(t, ChartBaseHeight+3*ChartRowHeight, all.Height)
	require.Equal(t, "price", RankingChart(products, models.FilterAll, "", loc).Metric)
}

func TestValuePlotSkipsIncompleteScores(t *testing.T) {
	t.Parallel()

	view := ValuePlot(fixture(), models.FilterAll, english(t))
	require.Equal(t, []Point{
		{X: 6.5, Y: 9.4, Label: "Sony WF-1000XM5"},
		{X: 6.0, Y: 8.8, Label: "Bose QC II"},
	}, view.Points)
	require.Len(t, view.Items, 2)
	require.Equal(t, 2, view.Items[1].ID)
}

func TestComparisonCards(t *testing.T) {
	t.Parallel()

	loc := english(t)
	products := fixture()

	view := Comparison([]*models.Product{products[0], nil}, "US", loc)
	require.Len(t, view.Cards, 2)
	require.False(t, view.Cards[0].Placeholder)
	require.True(t, view.Cards[1].Placeholder)

	card := view.Cards[0]
	require.Equal(t, []string{"Noise Cancellation", "Sound", "Battery Life"}, models.Specs(card.Specs).Labels())
	require.Equal(t, "BestBuy", card.Prices[0].Store)
	require.Contains(t, card.Prices[0].Display, "249.99")
	require.Empty(t, card.NoPricing)

	// the canonical price order is untouched
	require.Equal(t, "Amazon", products[0].RegionalPrices["US"][0].Store)

	// a filled final slot gets a trailing placeholder
	full := Comparison([]*models.Product{products[0], products[1]}, "US", loc)
	require.Len(t, full.Cards, 3)
	require.True(t, full.Cards[2].Placeholder)
	require.Equal(t, 2, full.Cards[2].Slot)

	// Bose has only DE prices and nothing for US
	require.Equal(t, "No pricing available for your region.", full.Cards[1].NoPricing)
	require.Empty(t, full.Cards[1].Prices)
}

func TestDirectTable(t *testing.T) {
	t.Parallel()

	loc := english(t)
	products := fixture()

	require.Nil(t, DirectTable([]*models.Product{nil, nil}, "US", loc))

	single := DirectTable([]*models.Product{products[0], nil}, "US", loc)
	require.NotNil(t, single, "a single selection still shows its table")
	require.Equal(t, []string{"Sony WF-1000XM5"}, single.Products)

	view := DirectTable([]*models.Product{products[0], products[2], nil}, "US", loc)
	require.Equal(t, "Price", view.Rows[0].Label)
	require.Contains(t, view.Rows[0].Cells[0], "249.99")
	require.Equal(t, "N/A", view.Rows[0].Cells[1])

	var labels []string
	for _, r := range view.Rows[1:] {
		labels = append(labels, r.Label)
	}
	// rows follow the first product only; Water Resistance is not a row
	require.Equal(t, []string{"Noise Cancellation", "Sound", "Battery Life"}, labels)
	require.Equal(t, []string{"Hi-Res", "N/A"}, view.Rows[2].Cells)
	require.Equal(t, []string{"Industry-leading", "Excellent"}, view.Rows[1].Cells)
}

func TestDataTable(t *testing.T) {
	t.Parallel()

	loc := english(t)
	view := DataTable(fixture(), models.FilterAll, "SONY", loc)
	require.Len(t, view.Rows, 2)
	require.Len(t, view.Columns, 6)

	first := view.Rows[0]
	require.Equal(t, "Sony WF-1000XM5", first.Name)
	require.Equal(t, "Earbuds", first.Type)
	require.Equal(t, "Industry-leading", first.NoiseCancellation)
	require.Equal(t, "N/A", first.WaterResistance)
	require.Equal(t, "6.5", first.PriceScore)

	headphones := DataTable(fixture(), "headphone", "", loc)
	require.Len(t, headphones.Rows, 1)
	require.Equal(t, "None", headphones.Rows[0].WaterResistance)

	require.Empty(t, DataTable(fixture(), "earbud", "zzz", loc).Rows)
}

func TestPickerScenarioD(t *testing.T) {
	t.Parallel()

	products := fixture()[:2]
	state := compare.NewState()
	require.NoError(t, state.OpenSlot(0))
	state.Picker.SetSearch("sony")

	view := Picker(products, state, english(t))
	require.True(t, view.Open)
	require.Len(t, view.Items, 1)
	require.Equal(t, "Sony WF-1000XM5", view.Items[0].Name)
	require.Empty(t, view.Suggestions)
}

func TestPickerDisablesProductsInOtherSlots(t *testing.T) {
	t.Parallel()

	products := fixture()
	cat := resolver(products)
	state := compare.NewState()
	require.NoError(t, state.Choose(cat, 1, 0))
	require.NoError(t, state.OpenSlot(0))

	view := Picker(products, state, english(t))
	require.Len(t, view.Items, 3)
	require.False(t, view.Items[0].Disabled, "own slot stays choosable")

	require.NoError(t, state.OpenSlot(1))
	view = Picker(products, state, english(t))
	require.True(t, view.Items[0].Disabled)
	require.False(t, view.Items[1].Disabled)

	state.Picker.Close()
	require.Empty(t, Picker(products, state, english(t)).Items)
}

func TestPickerSuggestions(t *testing.T) {
	t.Parallel()

	products := fixture()
	state := compare.NewState()
	require.NoError(t, state.OpenSlot(0))
	state.Picker.SetSearch("sonny")

	view := Picker(products, state, english(t))
	require.Empty(t, view.Items)
	require.NotEmpty(t, view.Suggestions)
	require.LessOrEqual(t, len(view.Suggestions), MaxSuggestions)
	for _, s := range view.Suggestions {
		require.True(t, strings.HasPrefix(s.Name, "Sony"), s.Name)
		require.GreaterOrEqual(t, s.Score, SuggestionThreshold)
	}

	require.Empty(t, Suggest(products, "qwerty"))
}

func TestQuickView(t *testing.T) {
	t.Parallel()

	loc := english(t)
	p := *fixture()[0]
	p.Description = "**Great** ANC.\n\n<script>alert(1)</script>\n\n[shop](https://example.com)"

	view := QuickView(&p, "US", loc)
	require.True(t, view.Open)
	require.Equal(t, "Earbuds", view.Type)
	require.NotNil(t, view.Lowest)
	require.Equal(t, "BestBuy", view.Lowest.Store)

	html := string(view.Description)
	require.Contains(t, html, "<strong>Great</strong>")
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, `rel="nofollow`)

	none := QuickView(fixture()[2], "US", loc)
	require.Nil(t, none.Lowest)
	require.NotEmpty(t, none.NoPricing)

	require.False(t, QuickView(nil, "US", loc).Open)
}

func TestBackground(t *testing.T) {
	t.Parallel()

	require.Equal(t, models.ThemeDark, Background(models.ThemeDark).Theme)
	require.NotEqual(t, Background(models.ThemeDark).ParticleColor, Background(models.ThemeLight).ParticleColor)
	require.Equal(t, models.ThemeLight, Background(models.ThemeSystem).Theme)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	loc := english(t)
	require.Contains(t, FormatPrice(loc, 249.99, "usd"), "249.99")
	require.Equal(t, "10.00 XYZ1", FormatPrice(loc, 10, "XYZ1"))
}

type resolver []*models.Product

func (r resolver) Get(id int) *models.Product {
	for _, p := range r {
		if p.ID == id {
			return p
		}
	}
	return nil
}
