package main

import (
	"log"
)

// Entry point for the NanoKVM control API
func main() {
	cfg := loadConfig()
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialise logging: %v", err)
	}
	logger.Infof("Loaded config: %+v", cfg)

	logger.Infof("Initializing system state...")
	state, err := NewStateManager(cfg.StatePath)
	if err != nil {
		log.Fatalf("failed to initialise state: %v", err)
	}
	logger.Infof("State manager initialized")

	expander, err := openExpander(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialise expander: %v", err)
	}

	server := NewServer(cfg, logger, state, expander)
	if err := server.Start(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
