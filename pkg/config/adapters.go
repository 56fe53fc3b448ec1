package config

import (
	"fmt"

	"github.com/marmos91/webdisk/pkg/adapter"
	"github.com/marmos91/webdisk/pkg/adapter/web"
	"github.com/marmos91/webdisk/pkg/metrics"
)

// CreateAdapters creates all enabled transport adapters from the configuration.
//
// httpMetrics may be nil, in which case the adapter records nothing.
func CreateAdapters(cfg *Config, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.HTTP.Enabled {
		adapters = append(adapters, web.New(cfg.HTTP, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
