package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"freightrates/internal/config"
)

const usage = `Usage: migrate <command>

Manages the parse_jobs schema in db/migrations (override with FREIGHT_MIGRATIONS_DIR).

Commands:
  up           apply all pending migrations
  down         revert every migration (drops parse_jobs)
  steps N      apply N migrations, or revert when N is negative
  force V      mark version V as applied and clear the dirty flag
  version      print the current version and dirty flag`

// command is a parsed migrate invocation.
type command struct {
	name string
	arg  int
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}
	cmd := command{name: args[0]}
	switch cmd.name {
	case "up", "down", "version":
		return cmd, nil
	case "steps", "force":
		if len(args) < 2 {
			return command{}, fmt.Errorf("%s requires a number argument", cmd.name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid %s argument %q: %w", cmd.name, args[1], err)
		}
		if cmd.name == "force" && n < 0 {
			return command{}, fmt.Errorf("force version must not be negative, got %d", n)
		}
		cmd.arg = n
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command: %s", cmd.name)
	}
}

func migrationsSource() string {
	dir := os.Getenv("FREIGHT_MIGRATIONS_DIR")
	if dir == "" {
		dir = "db/migrations"
	}
	return "file://" + dir
}

func main() {
	cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	m, err := migrate.New(migrationsSource(), cfg.DB.DSN())
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	if err := run(m, cmd); err != nil {
		log.Fatalf("migrate %s: %v", cmd.name, err)
	}
}

func run(m *migrate.Migrate, cmd command) error {
	var err error
	switch cmd.name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(cmd.arg)
	case "force":
		err = m.Force(cmd.arg)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("version: none (parse_jobs not created yet)")
			return nil
		}
		if verr != nil {
			return verr
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Printf("migrate %s: schema already current", cmd.name)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("migrate %s: done", cmd.name)
	return nil
}
