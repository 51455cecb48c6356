// Package market aggregates marketplace metadata. The four metadata
// endpoints are independent and read-only, so the overview fetches
// them in parallel.
package market

import (
	"context"
	"sync"

	"github.com/alitto/pond/v2"

	"fvm/internal/api"
)

// Client is the metadata surface the overview needs.
type Client interface {
	Countries(ctx context.Context) ([]string, error)
	HardwareOptions(ctx context.Context) (*api.HardwareOptions, error)
	BasicConfigurations(ctx context.Context) ([]string, error)
	DefaultImages(ctx context.Context) ([]api.OSImage, error)
}

// Overview is a combined snapshot of the marketplace metadata.
type Overview struct {
	Countries      []string             `json:"countries"`
	Hardware       *api.HardwareOptions `json:"hardware"`
	Configurations []string             `json:"configurations"`
	Images         []api.OSImage        `json:"images"`
}

// FetchOverview gathers all metadata. Individual fetch failures are
// returned combined; partial data is still populated so the caller can
// render what arrived.
func FetchOverview(ctx context.Context, client Client) (*Overview, error) {
	overview := &Overview{}

	var mu sync.Mutex
	var firstErr error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	pool := pond.NewPool(4)

	pool.Submit(func() {
		countries, err := client.Countries(ctx)
		record(err)
		overview.Countries = countries
	})
	pool.Submit(func() {
		hw, err := client.HardwareOptions(ctx)
		record(err)
		overview.Hardware = hw
	})
	pool.Submit(func() {
		configs, err := client.BasicConfigurations(ctx)
		record(err)
		overview.Configurations = configs
	})
	pool.Submit(func() {
		images, err := client.DefaultImages(ctx)
		record(err)
		overview.Images = images
	})

	pool.StopAndWait()
	return overview, firstErr
}
