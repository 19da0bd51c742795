package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"MarketLens/internal/di"
	"MarketLens/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "collect a single symbol")
	period := flag.String("period", "1y", "history period to request")
	all := flag.Bool("all", false, "collect every tracked company")
	noMock := flag.Bool("no-mock", false, "fail instead of falling back to synthetic data")
	initOnly := flag.Bool("init", false, "seed the company table and exit")
	flag.Parse()

	if !*initOnly && !*all && *symbol == "" {
		fmt.Fprintln(os.Stderr, "one of --symbol, --all or --init is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	collector, err := di.InitializeCollector(cfg)
	if err != nil {
		log.Fatalf("collector initialization failed: %v", err)
	}
	defer func() {
		if err := collector.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *initOnly {
		n, err := collector.UseCase.SeedCompanies(ctx)
		if err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Printf("seeded %d companies\n", n)
		return
	}

	var symbols []string
	if *symbol != "" {
		symbols = []string{*symbol}
	}
	report, err := collector.UseCase.CollectAndStore(ctx, symbols, *period, !*noMock)
	if err != nil {
		log.Fatalf("collect failed: %v", err)
	}

	fmt.Printf("run=%s succeeded=%d failed=%d records=%d\n", report.RunID, len(report.Succeeded), len(report.Failed), report.Records)
	for sym, reason := range report.Failed {
		fmt.Printf("  %s: %s\n", sym, reason)
	}
	if len(report.Succeeded) == 0 && len(report.Failed) > 0 {
		os.Exit(1)
	}
}
