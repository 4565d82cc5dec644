package junction

import (
	"log/slog"
	"time"

	"github.com/dormoron/junction/config"
)

// EngineConfig is the configuration section read by WithConfig.
//
//	server:
//	  log_level: debug
//	  match_cache_size: 4096
//	  strategies: [combined, trie]
//	  read_timeout: 30s
type EngineConfig struct {
	LogLevel       string        `config:"log_level"`
	MatchCacheSize int           `config:"match_cache_size"`
	Strategies     []string      `config:"strategies"`
	ReadTimeout    time.Duration `config:"read_timeout"`
	WriteTimeout   time.Duration `config:"write_timeout"`
	IdleTimeout    time.Duration `config:"idle_timeout"`
}

// WithConfig applies the section under key of p. A missing section leaves
// the defaults in place.
func WithConfig(p config.Provider, key string) HTTPServerOption {
	return func(s *HTTPServer) {
		if !p.Has(key) {
			return
		}
		var cfg EngineConfig
		if err := p.Unmarshal(key, &cfg); err != nil {
			if s.optErr == nil {
				s.optErr = err
			}
			return
		}
		s.applyConfig(cfg)
	}
}

func (s *HTTPServer) applyConfig(cfg EngineConfig) {
	s.applyLogLevel(cfg.LogLevel)
	if cfg.MatchCacheSize > 0 {
		WithMatchCache(cfg.MatchCacheSize)(s)
	}
	if len(cfg.Strategies) > 0 {
		WithStrategies(cfg.Strategies...)(s)
	}
	if cfg.ReadTimeout > 0 || cfg.WriteTimeout > 0 || cfg.IdleTimeout > 0 {
		sc := DefaultServerConfig()
		if cfg.ReadTimeout > 0 {
			sc.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			sc.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			sc.IdleTimeout = cfg.IdleTimeout
		}
		WithServerConfig(sc)(s)
	}
}

func (s *HTTPServer) applyLogLevel(name string) {
	if name == "" {
		return
	}
	level, err := ParseLogLevel(name)
	if err != nil {
		s.log.Warn("unknown log level", slog.String("level", name))
		return
	}
	SetLogLevel(level)
}

// WatchConfig re-applies the log level of the section under key whenever p
// reports a change. The other settings only take effect at start-up.
func (s *HTTPServer) WatchConfig(p config.Provider, key string) {
	p.AddChangeListener(func(string) {
		var cfg EngineConfig
		if err := p.Unmarshal(key, &cfg); err != nil {
			s.log.Warn("config reload ignored", slog.String("key", key), slog.Any("error", err))
			return
		}
		s.applyLogLevel(cfg.LogLevel)
	})
}
