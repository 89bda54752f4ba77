package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	paranoia "github.com/dailaim/paranoia-gorm"
	"github.com/dailaim/paranoia-gorm/internal/config"
	"github.com/dailaim/paranoia-gorm/internal/database"
	"github.com/dailaim/paranoia-gorm/internal/logger"
)

var errUsage = errors.New("usage")

var (
	flags      = flag.NewFlagSet("paranoia", flag.ExitOnError)
	configPath = flags.String("config", "", "path to a config file (yaml, json or toml)")
	help       = flags.Bool("h", false, "print help")
)

func main() {
	flags.Usage = usage
	flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 || *help {
		flags.Usage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	gormLevel := gormlogger.Warn
	if cfg.Log.SQL {
		gormLevel = gormlogger.Info
	}

	db, err := database.Open(cfg.Database, log, logger.NewGormLogger(log, gormLevel))
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(db, cfg.SoftDelete.Column, log, os.Stdout)
	if err != nil {
		if errors.Is(err, paranoia.ErrMarkerNotFound) {
			log.Error("soft_delete.column does not name a field of Note", zap.String("column", cfg.SoftDelete.Column))
		}
		log.Fatal("prepare", zap.Error(err))
	}

	if err := a.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flags.Usage()
			os.Exit(2)
		}
		log.Fatal(args[0], zap.Error(err))
	}
}

func usage() {
	fmt.Fprint(os.Stderr, usageCommands)
	flags.PrintDefaults()
}

var usageCommands = `Usage: paranoia [OPTIONS] COMMAND

Commands:
    migrate              create the notes table and its marker index; run it first
    add TITLE [BODY]     add a note
    list [-deleted|-all] list active, deleted or all notes
    delete ID            soft delete a note
    restore ID           restore a soft deleted note
    purge ID             remove a note for good
    demo                 run one note through delete, restore and purge

Environment:
    PARANOIA_DATABASE_DRIVER, PARANOIA_DATABASE_DSN, PARANOIA_SOFT_DELETE_COLUMN, ...

Options:
`
