package system

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"resonance/internal/config"
	"resonance/internal/metrics"
	"resonance/internal/store"
	"resonance/internal/web"
)

// FromConfig builds a fully wired System. Wiring order matters: storage
// first, then web access, so the web layer can log agent conversations
// through the store.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []Option{WithLogger(logger)}

	// 1. Storage. An empty path keeps trajectories in memory only.
	var st store.Store
	if cfg.Database.Path != "" {
		sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		st = sqlStore
		opts = append(opts, WithStore(st))
	}

	// 2. Web access. An agent-backed client wins when an API key is
	// present; otherwise direct HTTP. Disabled web leaves the system in
	// degraded mode with every layer still answering.
	if cfg.Web.Enabled {
		if cfg.HasAgent() {
			fulfill := web.NewAnthropicFulfiller(cfg.Agent.APIKey, cfg.Agent.Model)
			fulfill.SetLogger(logger)
			if st != nil {
				fulfill.SetConversationLog(st)
			}
			opts = append(opts, WithWebClient(web.NewAgentClient(fulfill.Fulfill)))
		} else {
			opts = append(opts, WithWebClient(web.NewHTTPClient(web.HTTPOptions{
				Timeout:           cfg.GetWebTimeout(),
				UserAgent:         cfg.Web.UserAgent,
				SearchEndpoint:    cfg.Web.SearchEndpoint,
				SearchAPIKey:      cfg.Web.SearchAPIKey,
				RequestsPerSecond: cfg.Web.RequestsPerSecond,
				CacheTTL:          cfg.GetCacheTTL(),
			})))
		}
	} else {
		logger.Info("web access disabled; running in degraded mode")
	}

	// 3. Metrics on the process-global registry.
	opts = append(opts, WithMetrics(metrics.New(prometheus.DefaultRegisterer)))

	return New(opts...), nil
}
