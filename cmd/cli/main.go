package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/unicore/internal/client/cli"
	"github.com/dmitrijs2005/unicore/internal/client/config"
)

func main() {
	app, err := cli.NewApp(config.LoadConfig())
	if err != nil {
		log.Fatalf("store cli: %v", err)
	}

	app.Run(context.Background())
}
