package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"werewolf-party/internal/logging"
)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	name := flag.String("name", "", "migration name, snake_case")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	if !migrationName.MatchString(*name) {
		logging.Log.WithField("name", *name).Fatal("migration name must be non-empty snake_case")
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, *name)
	upPath := filepath.Join(*dir, base+".up.sql")
	downPath := filepath.Join(*dir, base+".down.sql")

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		logging.Log.WithError(err).Fatal("create migrations dir")
	}
	header := fmt.Sprintf("-- %s (%s)\n", *name, version)
	if err := writeFile(upPath, header); err != nil {
		logging.Log.WithError(err).Fatal("create up migration")
	}
	if err := writeFile(downPath, header); err != nil {
		logging.Log.WithError(err).Fatal("create down migration")
	}

	logging.Log.WithField("up", upPath).WithField("down", downPath).Info("created migration")
}

// writeFile refuses to overwrite an existing migration.
func writeFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
