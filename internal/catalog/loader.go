package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/compare-engine/internal/models"
)

// ErrUnavailable is returned when the catalog cannot be fetched or parsed
var ErrUnavailable = errors.New("catalog unavailable")

// maxCatalogBytes bounds the catalog document size
const maxCatalogBytes = 8 << 20

// Loader fetches the catalog document from a URL or a local file
type Loader struct {
	httpClient *http.Client
}

// NewLoader creates a loader whose HTTP fetches time out after timeout
func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Load reads and parses the catalog from source.
// Sources starting with http:// or https:// are fetched with GET and must
// answer 2xx; anything else is read from disk. JSON and YAML are accepted.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	slog.Info("loading catalog", "source", source)

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			err = fmt.Errorf("%w: failed to read file: %v", ErrUnavailable, err)
		}
	}
	if err != nil {
		return nil, err
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	slog.Info("catalog loaded", "products", c.Len(), "types", c.Types())
	return c, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Parse decodes a catalog document: a top-level array of products.
// Documents opening with '[' or '{' are JSON, anything else is YAML. Both
// keep the spec order of the source.
func Parse(data []byte) (*Catalog, error) {
	var files []productFile
	if isJSON(data) {
		if err := json.Unmarshal(data, &files); err != nil {
			return nil, fmt.Errorf("%w: failed to parse catalog: %v", ErrUnavailable, err)
		}
	} else if err := yaml.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("%w: failed to parse catalog: %v", ErrUnavailable, err)
	}

	products := make([]*models.Product, 0, len(files))
	seen := make(map[int]bool, len(files))
	for i, f := range files {
		p, err := f.toProduct()
		if err != nil {
			slog.Warn("skipping catalog entry", "index", i, "error", err)
			continue
		}
		if seen[p.ID] {
			slog.Warn("skipping duplicate product id", "index", i, "id", p.ID)
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}

	return New(products), nil
}

func isJSON(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n\ufeff")
	return len(data) > 0 && (data[0] == '[' || data[0] == '{')
}

// productFile is the document shape of one catalog entry
type productFile struct {
	ID             *int                           `yaml:"id" json:"id"`
	Name           string                         `yaml:"name" json:"name"`
	Image          string                         `yaml:"image" json:"image"`
	Type           string                         `yaml:"type" json:"type"`
	Description    string                         `yaml:"description" json:"description"`
	Specs          models.Specs                   `yaml:"specs" json:"specs"`
	Scores         map[string]float64             `yaml:"scores" json:"scores"`
	RegionalPrices map[string][]models.PriceEntry `yaml:"regionalPrices" json:"regionalPrices"`
	// Prices is the flat, region-less list of the earliest catalog format
	Prices []models.PriceEntry `yaml:"prices" json:"prices"`
}

func (f productFile) toProduct() (*models.Product, error) {
	if f.ID == nil {
		return nil, fmt.Errorf("product id is required")
	}
	// actions use id 0 for "no product"
	if *f.ID <= 0 {
		return nil, fmt.Errorf("product id must be positive, got %d", *f.ID)
	}
	if strings.TrimSpace(f.Name) == "" {
		return nil, fmt.Errorf("product %d: name is required", *f.ID)
	}

	regional := make(map[string][]models.PriceEntry, len(f.RegionalPrices))
	for region, prices := range f.RegionalPrices {
		regional[strings.ToUpper(region)] = prices
	}
	if len(regional) == 0 && len(f.Prices) > 0 {
		legacy := make([]models.PriceEntry, len(f.Prices))
		for i, p := range f.Prices {
			if p.Currency == "" {
				p.Currency = "USD"
			}
			legacy[i] = p
		}
		regional[models.DefaultRegion] = legacy
	}

	return &models.Product{
		ID:             *f.ID,
		Name:           f.Name,
		Image:          f.Image,
		Type:           models.ProductType(strings.ToLower(strings.TrimSpace(f.Type))),
		Description:    f.Description,
		Specs:          f.Specs,
		Scores:         f.Scores,
		RegionalPrices: regional,
	}, nil
}
