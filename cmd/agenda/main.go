package main

import (
	"log"

	"github.com/patric-chuzhbe/agenda/internal/app"
	"github.com/patric-chuzhbe/agenda/internal/config"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Unable to load the config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Unable to initialize the application: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Printf("Error closing the application: %v", err)
		}
	}()

	if err := application.Run(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}
