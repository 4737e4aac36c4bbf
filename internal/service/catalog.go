package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/eventix/internal/domain"
)

const defaultSeat = "GA-001"

// Catalog holds the purchasable ticket types, keyed by id.
type Catalog struct {
	items map[string]domain.CatalogItem
	order []string
}

type catalogFile struct {
	Events []catalogEvent `yaml:"events"`
}

type catalogEvent struct {
	ID    string       `yaml:"id"`
	Title string       `yaml:"title"`
	Venue string       `yaml:"venue"`
	Date  string       `yaml:"date"`
	Price catalogPrice `yaml:"price"`
	Seat  string       `yaml:"seat"`
	Image string       `yaml:"image"`
}

// catalogPrice accepts both numbers and strings such as "0.1 SOL".
type catalogPrice struct {
	decimal.Decimal
}

func (p *catalogPrice) UnmarshalYAML(node *yaml.Node) error {
	price, err := domain.ParsePrice(node.Value)
	if err != nil {
		return err
	}
	p.Decimal = price
	return nil
}

// NewCatalog builds a catalog from items. Later duplicates replace earlier ones.
func NewCatalog(items []domain.CatalogItem) *Catalog {
	c := &Catalog{items: make(map[string]domain.CatalogItem, len(items))}
	for _, item := range items {
		if _, exists := c.items[item.ID]; !exists {
			c.order = append(c.order, item.ID)
		}
		c.items[item.ID] = item
	}
	return c
}

// LoadCatalog reads the events file at path. A missing or unreadable file
// yields an empty catalog.
func LoadCatalog(path string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("catalog file not found; no tickets available", zap.String("path", path))
		} else {
			logger.Warn("unable to read catalog file", zap.String("path", path), zap.Error(err))
		}
		return NewCatalog(nil)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		logger.Warn("unable to parse catalog file", zap.String("path", path), zap.Error(err))
		return NewCatalog(nil)
	}
	logger.Info("catalog loaded", zap.String("path", path), zap.Int("items", catalog.Len()))
	return catalog
}

// ParseCatalog decodes an events document. JSON documents are accepted too.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	items := make([]domain.CatalogItem, 0, len(file.Events))
	for i, event := range file.Events {
		id := strings.TrimSpace(event.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog event %d has no id", i)
		}
		if !event.Price.IsPositive() {
			return nil, fmt.Errorf("catalog event %q has no positive price", id)
		}
		seat := strings.TrimSpace(event.Seat)
		if seat == "" {
			seat = defaultSeat
		}
		items = append(items, domain.CatalogItem{
			ID:          id,
			Name:        event.Title,
			Description: event.Venue,
			EventDate:   event.Date,
			Price:       event.Price.Decimal,
			Seat:        seat,
			Image:       event.Image,
		})
	}
	return NewCatalog(items), nil
}

// Lookup returns the item with id.
func (c *Catalog) Lookup(id string) (domain.CatalogItem, bool) {
	item, ok := c.items[strings.TrimSpace(id)]
	return item, ok
}

// Items returns every item in file order.
func (c *Catalog) Items() []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}
