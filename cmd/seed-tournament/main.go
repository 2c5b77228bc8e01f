package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tatami/internal/seeding"
	"github.com/okian/tatami/pkg/logger"
)

const defaultRunTimeout = 5 * time.Minute

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		tournament  = flag.String("tournament", "", "Tournament id to seed (default: generated)")
		categories  = flag.Int("categories", seeding.DefaultCategories, "Number of categories to generate")
		competitors = flag.Int("competitors", seeding.DefaultCompetitors, "Size of the shared competitor pool")
		rosterSize  = flag.Int("roster", seeding.DefaultRosterSize, "Competitors per category")
		mats        = flag.Int("mats", seeding.DefaultMatCount, "Number of mats")
		startDate   = flag.String("start", "", "First competition day, YYYY-MM-DD (default: today)")
		days        = flag.Int("days", seeding.DefaultDayCount, "Number of competition days")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Roster generation seed")
		timeout     = flag.Duration("timeout", seeding.DefaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Write the generated categories to this JSON file")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.InitWith(logger.Options{Level: level}); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := &seeding.Config{
		BaseURL:      *baseURL,
		TournamentID: *tournament,
		Categories:   *categories,
		Competitors:  *competitors,
		RosterSize:   *rosterSize,
		MatCount:     *mats,
		StartDate:    *startDate,
		DayCount:     *days,
		Seed:         *seed,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	if err := run(cfg); err != nil {
		logger.Get().Error(context.Background(), "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *seeding.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := seeding.Run(ctx, cfg)
	return err
}
