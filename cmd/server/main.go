package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/kaplunov-alex/PWMgr/internal/flagx"
	"github.com/kaplunov-alex/PWMgr/internal/server"
	"github.com/kaplunov-alex/PWMgr/internal/server/config"
)

func setupRequested() bool {
	fs := flag.NewFlagSet("mode", flag.ContinueOnError)
	setup := fs.Bool("setup", false, "configure the master password interactively and exit")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], nil, "-setup")); err != nil {
		return false
	}
	return *setup
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if setupRequested() {
		defer app.Close()
		if err := server.RunSetup(ctx, app.Auth(), os.Stdout); err != nil {
			log.Printf("setup failed: %v", err)
		}
		return
	}

	app.Run(ctx)

}
