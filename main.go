package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jupark12/pdf-diff/config"
	"github.com/jupark12/pdf-diff/extract"
	"github.com/jupark12/pdf-diff/preview"
	"github.com/jupark12/pdf-diff/server"
	"github.com/jupark12/pdf-diff/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config file] [serve | compare [-scale s] baseline.pdf revised.pdf]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		if err := serve(*configPath); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case "compare":
		os.Exit(compare(args, os.Stdout))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder store.Recorder
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresRecorder(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		recorder = pg
		log.Printf("Recording jobs to PostgreSQL")
	} else {
		fr, err := store.NewFileRecorder(cfg.DataDir)
		if err != nil {
			return err
		}
		recorder = fr
		log.Printf("Recording jobs to %s", cfg.DataDir)
	}

	srv := server.NewServer(cfg, recorder, extract.New(nil), preview.PdftoppmRenderer{
		Bin: cfg.Preview.Bin,
		DPI: cfg.Preview.DPI,
	})
	log.Printf("PDF diff service starting")
	err = srv.Start(ctx)
	log.Println("Shutting down gracefully...")
	return err
}
