package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/relaykeeper/internal/app"
	"github.com/dmitrijs2005/relaykeeper/internal/config"
	"github.com/joho/godotenv"
)

func main() {

	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(cfg, nil)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
