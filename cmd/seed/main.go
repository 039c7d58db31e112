package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-exams/internal/config"
	"github.com/mind-engage/mindengage-exams/internal/db"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/logger"
	"github.com/mind-engage/mindengage-exams/internal/seed"
)

func main() {
	file := flag.String("file", "", "catalog JSON file (default: built-in demo catalog)")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	var data []byte
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			log.Fatal("read catalog", zap.Error(err))
		}
	}
	catalog, err := seed.Parse(data)
	if err != nil {
		log.Fatal("parse catalog", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer dbh.Close()

	if _, err := seed.Run(ctx, exam.NewSQLStore(dbh, cfg.DBDriver), catalog); err != nil {
		log.Error("seeding failed", zap.Error(err))
		os.Exit(1)
	}
}
