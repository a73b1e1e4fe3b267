// Package cmd wires up the CLI flags and runs the bridge server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"ghostbridge/bridge"
	"ghostbridge/config"
	"ghostbridge/internal/fileeditor"
	"ghostbridge/internal/metrics"
	"ghostbridge/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ghostbridge/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// flagValues holds raw flag values; only flags the user actually set
// are applied on top of the file and environment layers.
type flagValues struct {
	host             string
	port             int
	advertisePort    int
	file             string
	logFile          string
	peekSize         int
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	verbose          int
}

// Execute parses args and runs the bridge until ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	var fv flagValues
	fs := flag.NewFlagSet("ghostbridge", flag.ContinueOnError)

	// ── network ──────────────────────────────────────────────────
	fs.StringVar(&fv.host, "host", config.DefaultHost, "Address to bind")
	fs.IntVarP(&fv.port, "port", "p", config.DefaultPort, "Port for discovery and WebSocket (0 = ephemeral)")
	fs.IntVar(&fv.advertisePort, "advertise-port", 0, "WebSocket port reported to the extension (default: bound port)")

	// ── protocol ─────────────────────────────────────────────────
	fs.IntVar(&fv.peekSize, "peek-size", config.DefaultPeekSize, "Bytes inspected to classify a connection")
	fs.DurationVar(&fv.handshakeTimeout, "handshake-timeout", config.DefaultHandshakeTimeout, "Deadline for a connection's first request")
	fs.DurationVar(&fv.writeTimeout, "write-timeout", config.DefaultWriteTimeout, "Per-frame write deadline")

	// ── editor / output ──────────────────────────────────────────
	fs.StringVarP(&fv.file, "file", "f", "", "Mirror the browser text into this file and watch it for edits")
	fs.StringVar(&fv.logFile, "log-file", "", "Append log lines to this file instead of stderr")
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var configPath string
	fs.StringVar(&configPath, "config", "", "JSONC configuration file")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "Print the effective configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("ghostbridge %s\n", version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v (use --help for usage)", fs.Args())
	}

	// ── layer: defaults < file < env < flags ─────────────────────
	cfg := config.Default()
	if configPath != "" {
		if err := config.LoadFile(cfg, configPath); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, &fv, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		fmt.Println(cfg.String())
		return nil
	}

	return run(ctx, cfg)
}

func applyFlags(fs *flag.FlagSet, fv *flagValues, cfg *config.Config) {
	if fs.Changed("host") {
		cfg.Host = fv.host
	}
	if fs.Changed("port") {
		cfg.Port = fv.port
	}
	if fs.Changed("advertise-port") {
		cfg.AdvertisePort = fv.advertisePort
	}
	if fs.Changed("peek-size") {
		cfg.PeekSize = fv.peekSize
	}
	if fs.Changed("handshake-timeout") {
		cfg.HandshakeTimeout = fv.handshakeTimeout
	}
	if fs.Changed("write-timeout") {
		cfg.WriteTimeout = fv.writeTimeout
	}
	if fs.Changed("file") {
		cfg.File = fv.file
	}
	if fs.Changed("log-file") {
		cfg.LogFile = fv.logFile
	}
	if fs.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
}

// run starts the bridge with the configured editor and blocks until
// ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	logger, err := util.InitLogging(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}

	m := metrics.New()
	editor := &bridge.Editor{}
	srv := bridge.New(bridge.Options{Config: cfg, Logger: logger, Editor: editor, Metrics: m})

	var fe *fileeditor.Editor
	if cfg.File != "" {
		if fe, err = fileeditor.New(cfg.File, logger); err != nil {
			return err
		}
		err = editor.Register(fe.WriteBuffer)
	} else {
		err = editor.Register(newStdoutEditor(os.Stdout))
	}
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		srv.Stop()
		logger.Verbose("metrics: %s", m.JSON())
	}()

	watchErr := make(chan error, 1)
	if fe != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() { watchErr <- fe.Watch(wctx, srv.Update) }()
		logger.Info("mirroring browser text to %s", fe.Path())
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-watchErr:
		return err
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ghostbridge – GhostText bridge server v%s

Serves the GhostText browser extension: answers its discovery request
and relays text between the browser and an editor over a WebSocket.

Usage:
  ghostbridge [options]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  GHOSTBRIDGE_HOST, GHOSTBRIDGE_PORT, GHOSTBRIDGE_ADVERTISE_PORT,
  GHOSTBRIDGE_PEEK_SIZE, GHOSTBRIDGE_HANDSHAKE_TIMEOUT,
  GHOSTBRIDGE_WRITE_TIMEOUT, GHOSTBRIDGE_CHANGE_BUFFER,
  GHOSTBRIDGE_FILE, GHOSTBRIDGE_LOG_FILE, GHOSTBRIDGE_VERBOSE

Examples:
  ghostbridge                                 Print browser text to stdout
  ghostbridge -f notes.md                     Edit textareas through notes.md
  ghostbridge -p 4002 --advertise-port 4001   Behind a port forward
  ghostbridge --config bridge.jsonc -vv       Load settings from a file
`)
}
