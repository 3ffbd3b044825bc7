package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"truck-inspection-backend/internal/model"
)

var (
	ErrUnknownTruck      = errors.New("unknown truck")
	ErrNotFound          = errors.New("resource not found")
	ErrMalformed         = errors.New("malformed document")
)

const (
	registryKey = "registry"
	// preloadConcurrency bounds simultaneous definition fetches during Preload.
	preloadConcurrency = 4
)

// Catalog serves the registry and definitions from a Source through a TTL cache.
type Catalog struct {
	source Source
	cache  *cache.Cache
	logger *zap.SugaredLogger
}

// New creates a Catalog. A ttl <= 0 keeps entries until Flush.
func New(source Source, ttl time.Duration, logger *zap.SugaredLogger) *Catalog {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}
	return &Catalog{
		source: source,
		cache:  cache.New(expiration, 10*time.Minute),
		logger: logger,
	}
}

func definitionKey(truckID int64) string {
	return fmt.Sprintf("definition:%d", truckID)
}

// Trucks returns the truck registry.
func (c *Catalog) Trucks(ctx context.Context) ([]model.TruckRef, error) {
	if v, found := c.cache.Get(registryKey); found {
		return v.([]model.TruckRef), nil
	}
	trucks, err := c.source.Registry(ctx)
	if err != nil {
		return nil, fmt.Errorf("load truck registry: %w", err)
	}
	c.cache.SetDefault(registryKey, trucks)
	return trucks, nil
}

// Truck returns the registry entry for id, or ErrUnknownTruck.
func (c *Catalog) Truck(ctx context.Context, id int64) (model.TruckRef, error) {
	trucks, err := c.Trucks(ctx)
	if err != nil {
		return model.TruckRef{}, err
	}
	for _, t := range trucks {
		if t.ID == id {
			return t, nil
		}
	}
	return model.TruckRef{}, fmt.Errorf("%w: %d", ErrUnknownTruck, id)
}

// Definition returns the validated checklist definition for a truck.
func (c *Catalog) Definition(ctx context.Context, truckID int64) (model.Definition, error) {
	key := definitionKey(truckID)
	if v, found := c.cache.Get(key); found {
		return v.(model.Definition), nil
	}
	def, err := c.source.Definition(ctx, truckID)
	if err != nil {
		return model.Definition{}, err
	}
	for _, problem := range Collisions(def) {
		c.logger.Warnw("checklist definition entry will share a result", "truck", truckID, "problem", problem)
	}
	c.cache.SetDefault(key, def)
	return def, nil
}

// Preload warms the cache with the registry and every truck's definition.
// Individual definition failures are logged and do not fail the preload.
func (c *Catalog) Preload(ctx context.Context) error {
	trucks, err := c.Trucks(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for _, truck := range trucks {
		g.Go(func() error {
			if _, err := c.Definition(gctx, truck.ID); err != nil {
				c.logger.Warnw("checklist preload failed", "truck", truck.ID, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Infow("catalog preloaded", "trucks", len(trucks))
	return nil
}

// Flush drops every cached entry.
func (c *Catalog) Flush() {
	c.cache.Flush()
}

// Collisions describes entries of a definition that cannot be told apart in
// recorded results: untitled or repeated sections, blank or repeated items.
// Such definitions still render as written; a later entry overwrites an
// earlier one when results are recorded.
func Collisions(def model.Definition) []string {
	var problems []string
	seenSections := make(map[string]bool, len(def.Sections))
	for i, section := range def.Sections {
		if strings.TrimSpace(section.Title) == "" {
			problems = append(problems, fmt.Sprintf("section %d has no title", i))
		}
		if seenSections[section.Title] {
			problems = append(problems, fmt.Sprintf("duplicate section %q", section.Title))
		}
		seenSections[section.Title] = true

		seenItems := make(map[string]bool, len(section.Items))
		for _, item := range section.Items {
			if strings.TrimSpace(item) == "" {
				problems = append(problems, fmt.Sprintf("blank item in section %q", section.Title))
			}
			if seenItems[item] {
				problems = append(problems, fmt.Sprintf("duplicate item %q in section %q", item, section.Title))
			}
			seenItems[item] = true
		}
	}
	return problems
}
