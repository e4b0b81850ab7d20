package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "FOLIO_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "content.data_dir", typ: kString, env: "FOLIO_CONTENT_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Content.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Content.DataDir },
	},
	{
		key: "content.works_source", typ: kString, env: "FOLIO_CONTENT_WORKS_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Content.WorksSource = v.(string) },
		extract: func(cfg Config) any { return cfg.Content.WorksSource },
	},
	{
		key: "content.blog_source", typ: kString, env: "FOLIO_CONTENT_BLOG_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Content.BlogSource = v.(string) },
		extract: func(cfg Config) any { return cfg.Content.BlogSource },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "editor.enabled", typ: kBool, env: "FOLIO_EDITOR_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Editor.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Editor.Enabled },
	},
	{
		key: "editor.save_url", typ: kString, env: "FOLIO_EDITOR_SAVE_URL",
		apply:   func(cfg *Config, v any) { cfg.Editor.SaveURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Editor.SaveURL },
	},
	{
		key: "site.file", typ: kString, env: "FOLIO_SITE_FILE",
		apply:   func(cfg *Config, v any) { cfg.Site.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Site.File },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
