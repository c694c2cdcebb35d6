package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/sheetsim"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		port     = flag.String("port", "8081", "HTTP port")
		agents   = flag.Int("agents", 25, "Number of simulated agents")
		days     = flag.Int("days", 14, "Number of daily sheets ending today")
		seed     = flag.Int64("seed", 0, "Workbook seed (0 picks one from the clock)")
		failRate = flag.Float64("fail-rate", 0, "Share of /exec requests answered with HTTP 500")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Str("service", "sheetsim").
		Logger()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	if *agents <= 0 || *days < 0 || *failRate < 0 || *failRate > 1 {
		logger.Fatal().
			Int("agents", *agents).
			Int("days", *days).
			Float64("fail_rate", *failRate).
			Msg("invalid simulator flags")
	}

	api := sheetsim.NewAPI(sheetsim.Options{
		Agents:   *agents,
		Days:     *days,
		Seed:     *seed,
		FailRate: *failRate,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := api.Start(ctx, ":"+*port); err != nil {
			logger.Error().Err(err).Msg("simulator stopped")
		}
	}()

	status := api.Status()
	logger.Info().
		Int64("seed", status.Seed).
		Int("agents", status.Agents).
		Int("sheets", status.Sheets).
		Msg("sheet simulator ready")
	printUsage(*port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down sheet simulator")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func printUsage(port string) {
	fmt.Println()
	fmt.Println("Available endpoints:")
	fmt.Printf("  GET  http://localhost:%s/health                            - Health check\n", port)
	fmt.Printf("  GET  http://localhost:%s/status                            - Workbook and request counters\n", port)
	fmt.Printf("  POST http://localhost:%s/reseed                            - Regenerate the workbook\n", port)
	fmt.Printf("  GET  http://localhost:%s/exec?action=getSheets             - Sheet list\n", port)
	fmt.Printf("  GET  http://localhost:%s/exec?action=getData&sheet=<name>  - Sheet rows\n", port)
	fmt.Println()
	fmt.Println("Point the backend at it with:")
	fmt.Printf("  APPS_SCRIPT_URL=http://localhost:%s/exec SHEETSIM_URL=http://localhost:%s\n", port, port)
	fmt.Println()
}
