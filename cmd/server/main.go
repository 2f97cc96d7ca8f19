package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/unicore/internal/server"
	"github.com/dmitrijs2005/unicore/internal/server/config"
)

func main() {
	app, err := server.NewApp(config.LoadConfig())
	if err != nil {
		log.Fatalf("store server: %v", err)
	}

	app.Run(context.Background())
}
