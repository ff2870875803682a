package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pricecomp/internal/files"
	"pricecomp/internal/infrastructure"
	"pricecomp/internal/services"
	"pricecomp/internal/validation"
	"pricecomp/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one batch run and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pricecomp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "listings export to process (.csv, .xlsx or .xlsm)")
	outDir := fs.String("out", ".", "directory the archive is written to")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}
	if *in == "" {
		fmt.Fprintln(stderr, "pricecomp: -in is required")
		fs.Usage()
		return 2
	}

	logger := infrastructure.NewJSONLogger(stderr, *logLevel)
	validator := validation.NewFileValidator(logger)

	if err := validator.ValidateInputFile(*in); err != nil {
		fmt.Fprintf(stderr, "pricecomp: %v\n", err)
		return 1
	}
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		fmt.Fprintf(stderr, "pricecomp: %v\n", err)
		return 1
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(stderr, "pricecomp: %v\n", err)
		return 1
	}
	defer f.Close()

	fm := files.NewManager(os.TempDir(), logger)
	svc := services.NewPriceCompService(fm, logger)

	logger.Info("Starting price comp run",
		slog.String("input", *in),
		slog.String("output_dir", *outDir),
		slog.String("version", contracts.Version))

	result, err := svc.Run(ctx, services.RunInput{Filename: filepath.Base(*in), Data: f})
	if err != nil {
		fmt.Fprintf(stderr, "pricecomp: %v\n", err)
		return 1
	}

	target := filepath.Join(*outDir, result.Archive.Name)
	if err := fm.WriteFile(target, result.Archive.Bytes); err != nil {
		fmt.Fprintf(stderr, "pricecomp: %v\n", err)
		return 1
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(stdout, "%d partner(s), %d NC/NCO row(s)\n", result.PartnerCount, result.FilteredRows)
	for _, row := range result.TopPartners {
		fmt.Fprintf(stdout, "  %-12s %-30s %d\n", row.PartnerID, row.PartnerName, row.SKUCount)
	}
	fmt.Fprintf(stdout, "archive written to %s\n", target)
	return 0
}
