package main

import (
	"log"
	"os"
	"path/filepath"

	"honeypot-bot/bot"
	"honeypot-bot/config"
	"honeypot-bot/handlers"
	"honeypot-bot/logger"
	"honeypot-bot/utils/database/tempbans"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := logger.Setup(cfg.Logger); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := tempbans.Init(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer db.Close()

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	handlers.Register(b)

	if err := b.Run(); err != nil {
		log.Fatalf("Error running bot: %v", err)
	}

	b.Close()
}
