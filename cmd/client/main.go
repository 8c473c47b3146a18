package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/fieldmate/internal/client/app"
	"github.com/dmitrijs2005/fieldmate/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer a.Close()

	a.Run(ctx)

}
