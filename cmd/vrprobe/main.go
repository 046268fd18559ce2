package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/detection"
	"github.com/vrplayer/vrprobe/internal/library"
	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/media"
	"github.com/vrplayer/vrprobe/internal/tui"
	"github.com/vrplayer/vrprobe/pkg/version"
)

type options struct {
	configPath  string
	jsonOutput  bool
	reportPath  string
	interactive bool
	verbose     bool
	showVersion bool
}

func main() {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	flag.StringVar(&opts.reportPath, "report", "", "Also write a JSON report to this path")
	flag.BoolVar(&opts.interactive, "tui", false, "Show live progress while scanning directories")
	flag.BoolVar(&opts.verbose, "v", false, "Enable debug logging")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] path...\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(flag.CommandLine.Output(), "Files are classified directly; directories are scanned for supported videos.")
		fmt.Fprintln(flag.CommandLine.Output())
		flag.PrintDefaults()
	}
	flag.Parse()

	if opts.showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, opts, flag.Args(), os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vrprobe: %v\n", err)
	}
	os.Exit(code)
}

// run classifies paths and prints the results. It returns exit code 1 when
// any path failed and the error that prevented producing output at all.
func run(ctx context.Context, opts options, paths []string, stdout, stderr io.Writer) (int, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return 1, err
	}

	// The CLI logs to stderr regardless of the configured output.
	cfg.Logging.Output = "stderr"
	if opts.verbose {
		cfg.Logging.Level = "debug"
	} else if opts.configPath == "" {
		cfg.Logging.Level = "warn"
	}

	logrusLog, err := logger.New(&cfg.Logging)
	if err != nil {
		return 1, err
	}
	logrusLog.SetOutput(stderr)
	log := logger.FromLogrus(logrusLog)

	detector := detection.NewDetector(&cfg.Detection, log)
	catalog := library.NewMemoryCatalog()
	open := func(path string) (detection.FrameProvider, error) {
		return media.OpenProvider(path, &cfg.Detection, cfg.Library.SupportedFormats, media.ExecRunner{})
	}
	scanner := library.NewScanner(&cfg.Library, detector, catalog, open, log)

	var (
		files  []string
		dirs   []string
		failed bool
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(stderr, "vrprobe: %v\n", err)
			failed = true
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, p)
		} else {
			files = append(files, p)
		}
	}

	var entries []*library.Entry

	for _, path := range files {
		entry, err := detectFile(ctx, scanner, detector, open, path)
		if err != nil {
			fmt.Fprintf(stderr, "vrprobe: %s: %v\n", path, err)
			failed = true
			continue
		}
		entries = append(entries, entry)
	}

	if len(dirs) > 0 {
		var summary *library.Summary
		if opts.interactive {
			summary, err = tui.RunScan(ctx, scanner, dirs, os.Stdin, stderr)
		} else {
			summary, err = scanner.Scan(ctx, dirs, nil)
		}
		if err != nil {
			return 1, fmt.Errorf("scan: %w", err)
		}
		if summary.Failed > 0 || summary.Invalid > 0 {
			failed = true
		}
		entries = append(entries, summary.Entries...)
	}

	if opts.reportPath != "" {
		if err := library.WriteReport(opts.reportPath, entries); err != nil {
			return 1, err
		}
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(library.NewReport(entries)); err != nil {
			return 1, err
		}
	} else {
		fmt.Fprint(stdout, tui.RenderResults(entries))
	}

	if failed {
		return 1, nil
	}
	return 0, nil
}

// detectFile classifies a single file. Videos go through the scanner so
// they are validated like library files; stills are classified directly.
func detectFile(ctx context.Context, scanner *library.Scanner, det *detection.Detector, open library.ProviderOpener, path string) (*library.Entry, error) {
	if !media.IsImage(path) {
		return scanner.ProcessFile(ctx, path)
	}

	provider, err := open(path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &library.Entry{
		ID:         library.EntryID(abs),
		Path:       abs,
		Result:     det.Detect(ctx, abs, provider),
		DetectedAt: time.Now().UTC(),
	}, nil
}
