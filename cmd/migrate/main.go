package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/config"
	"github.com/wacdo-pos/kiosk/internal/logger"
)

func main() {
	cfg := config.Load()
	source := flag.String("path", cfg.MigrationsPath, "migrations source URL")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-path url] up|down|version|force N\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := migrate.New(*source, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("create migrate instance", zap.Error(err))
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "force":
		var v int
		v, err = strconv.Atoi(flag.Arg(1))
		if err == nil {
			err = m.Force(v)
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal("read version", zap.Error(verr))
		}
		log.Info("schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("migrate", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
	log.Info("migrations applied", zap.String("command", flag.Arg(0)))
}
