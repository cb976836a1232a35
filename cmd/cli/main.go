package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/kitkeeper/internal/client/cli"
	"github.com/dmitrijs2005/kitkeeper/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx, cli.CommandArgs(os.Args[1:])); err != nil {
		os.Exit(1)
	}

}
