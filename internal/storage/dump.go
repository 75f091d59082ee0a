package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"autoriascout/logger"
	apperrors "autoriascout/pkg/errors"
)

// CreateDump shells out to pg_dump and writes a full SQL dump of the store
// into dumpsDir. Returns the dump file path.
func CreateDump(ctx context.Context, databaseURL, dumpsDir string) (string, error) {
	log := logger.ForStore()

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", apperrors.NewDump("invalid database URL", err)
	}

	if err := os.MkdirAll(dumpsDir, 0o755); err != nil {
		return "", apperrors.NewDump("failed to create dumps dir", err)
	}

	path := filepath.Join(dumpsDir,
		fmt.Sprintf("autoria_db_dump_%s.sql", time.Now().Format("20060102_150405")))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	dbName := filepath.Base(u.Path)

	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", host,
		"-p", port,
		"-U", u.User.Username(),
		"-d", dbName,
		"-f", path,
	)
	cmd.Env = os.Environ()
	if password, ok := u.User.Password(); ok {
		cmd.Env = append(cmd.Env, "PGPASSWORD="+password)
	}

	log.Debug().Str("host", host).Str("db", dbName).Str("path", path).Msg("Running pg_dump")

	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		log.Info().Str("output", string(output)).Msg("pg_dump output")
	}
	if err != nil {
		return "", apperrors.NewDump("pg_dump failed", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", apperrors.NewDump("dump file was not created", err)
	}

	log.Info().Str("path", path).Int64("size", info.Size()).Msg("Database dump created")
	return path, nil
}
