// Package main Anchor Topic API Server
//
//	@title			Anchor Topic API
//	@version		1.0
//	@description	Interactive anchor-word topic modeling: recover topics from analyst anchors and score a held-out classifier
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:5000
//	@BasePath	/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/emilykay2/tbuie/config"
	_ "github.com/emilykay2/tbuie/docs" // This imports the docs package to initialize swagger
	"github.com/emilykay2/tbuie/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flag.StringVar(&cfg.Dataset, "dataset", cfg.Dataset, fmt.Sprintf("dataset to serve %v", config.DatasetNames()))
	flag.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [dataset [port]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// positional form: tbuie-server newsgroups 5001
	if args := flag.Args(); len(args) > 0 {
		cfg.Dataset = args[0]
		if len(args) > 1 {
			port, err := strconv.Atoi(args[1])
			if err != nil {
				log.Fatalf("Invalid port %q: %v", args[1], err)
			}
			cfg.Port = port
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting anchor topic server for %s...", cfg.Dataset)
	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown failed: %v", err)
		}
	}()

	log.Printf("Listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Println("Server stopped.")
}
