package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
	"go.uber.org/zap"

	"truck-inspection-backend/config"
	"truck-inspection-backend/internal/model"
)

// RegistryFile is the name of the truck registry document.
const RegistryFile = "trucks.json"

// DefinitionFile returns the name of the checklist definition for a truck.
func DefinitionFile(truckID int64) string {
	return fmt.Sprintf("truck%d.json", truckID)
}

// Source provides the truck registry and checklist definitions.
type Source interface {
	Registry(ctx context.Context) ([]model.TruckRef, error)
	Definition(ctx context.Context, truckID int64) (model.Definition, error)
}

// decode accepts standard JSON as well as JSON with comments and trailing commas.
func decode(data []byte, v any) error {
	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal(std, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DirSource reads the catalog from a local directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Registry implements Source.
func (s *DirSource) Registry(_ context.Context) ([]model.TruckRef, error) {
	data, err := s.read(RegistryFile)
	if err != nil {
		return nil, err
	}
	var reg model.Registry
	if err := decode(data, &reg); err != nil {
		return nil, fmt.Errorf("%s: %w", RegistryFile, err)
	}
	return reg.Trucks, nil
}

// Definition implements Source.
func (s *DirSource) Definition(_ context.Context, truckID int64) (model.Definition, error) {
	name := DefinitionFile(truckID)
	data, err := s.read(name)
	if err != nil {
		return model.Definition{}, err
	}
	var def model.Definition
	if err := decode(data, &def); err != nil {
		return model.Definition{}, fmt.Errorf("%s: %w", name, err)
	}
	return def, nil
}

// HTTPSource fetches the catalog from a remote base URL.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource from the catalog configuration.
func NewHTTPSource(cfg config.CatalogConfig, logger *zap.SugaredLogger) *HTTPSource {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warnw("invalid proxy URL, catalog will not use a proxy", "proxy", cfg.HTTPProxy, "err", err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSource{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

func (s *HTTPSource) fetch(ctx context.Context, name string) ([]byte, error) {
	target, err := url.JoinPath(s.baseURL, name)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// Registry implements Source.
func (s *HTTPSource) Registry(ctx context.Context) ([]model.TruckRef, error) {
	data, err := s.fetch(ctx, RegistryFile)
	if err != nil {
		return nil, err
	}
	var reg model.Registry
	if err := decode(data, &reg); err != nil {
		return nil, fmt.Errorf("%s: %w", RegistryFile, err)
	}
	return reg.Trucks, nil
}

// Definition implements Source.
func (s *HTTPSource) Definition(ctx context.Context, truckID int64) (model.Definition, error) {
	name := DefinitionFile(truckID)
	data, err := s.fetch(ctx, name)
	if err != nil {
		return model.Definition{}, err
	}
	var def model.Definition
	if err := decode(data, &def); err != nil {
		return model.Definition{}, fmt.Errorf("%s: %w", name, err)
	}
	return def, nil
}

// NewSource picks DirSource or HTTPSource from the configuration.
func NewSource(cfg config.CatalogConfig, logger *zap.SugaredLogger) Source {
	if cfg.Dir != "" {
		return NewDirSource(cfg.Dir)
	}
	return NewHTTPSource(cfg, logger)
}
