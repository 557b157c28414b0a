package storage

import (
	"errors"
	"strings"

	logx "github.com/beat4ocean/astrbot-plugin-remind/pkg/logx"
)

// Open initializes the configured store. PostgresURL takes precedence over
// the local drivers; an empty config falls back to the JSON file backend.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	if url := strings.TrimSpace(cfg.PostgresURL); url != "" {
		return openPostgres(url, log)
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
