package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/docscan-mcp/internal/config"
	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
	"github.com/ironsheep/docscan-mcp/internal/reply"
	"github.com/ironsheep/docscan-mcp/internal/server"
	"github.com/ironsheep/docscan-mcp/internal/watch"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("%s %s\n", server.Name, Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Tesseract:  %s\n", ocr.Version())
			return
		case "--help", "-h", "help":
			usage()
			return
		case "serve", "extract", "watch":
			cmd, args = args[0], args[1:]
		}
	}

	cfg, rest, err := config.Load(cmd, args)
	if errors.Is(err, flag.ErrHelp) {
		usage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", server.Name, err)
		os.Exit(2)
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", server.Name, err)
		os.Exit(2)
	}
	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
		"command": cmd,
	}).Debug("starting")

	switch cmd {
	case "extract":
		err = runExtract(cfg, log, rest)
	case "watch":
		err = runWatch(cfg, log)
	default:
		err = server.New(cfg, log).Run()
	}
	if err != nil {
		log.WithError(err).Error(cmd + " failed")
		var decErr *rectify.DecodeError
		if errors.As(err, &decErr) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

// runExtract rectifies one photo and prints the written document paths.
func runExtract(cfg *config.Config, log *logrus.Logger, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: extract [flags] <photo> [output-dir]")
	}
	outDir := cfg.OutputDir
	if len(args) == 2 {
		outDir = args[1]
	}

	ex := rectify.NewExtractor(cfg.ExtractOptions(), log)
	res, err := ex.ExtractFile(args[0], outDir)
	if err != nil {
		return err
	}
	for _, h := range res.Handles {
		fmt.Println(h)
	}
	if len(res.Dropped) > 0 {
		return fmt.Errorf("%d of %d documents could not be written", len(res.Dropped), len(res.Dropped)+len(res.Handles))
	}
	return nil
}

// runWatch processes photos dropped into the inbox until interrupted.
func runWatch(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m reply.Messenger = &reply.LogMessenger{Log: log}
	if cfg.LineChannelToken != "" {
		lm, err := reply.NewLineMessenger(cfg.LineChannelToken, "")
		if err != nil {
			return err
		}
		m = lm
		log.Info("delivering through LINE")
	}

	ex := rectify.NewExtractor(cfg.ExtractOptions(), log)
	w := watch.New(cfg, ex, m, log)
	return w.Run(ctx)
}

func usage() {
	fmt.Printf("%s - document rectifier for photos of paper\n", server.Name)
	fmt.Println()
	fmt.Printf("Usage: %s [command] [flags]\n", server.Name)
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                          MCP server over stdin/stdout (default)")
	fmt.Println("  extract <photo> [output-dir]   Rectify the documents in one photo")
	fmt.Println("  watch                          Process photos dropped into --inbox")
	fmt.Println("  version                        Print version information")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config <file>          YAML configuration file")
	fmt.Println("  --output-dir <dir>       Directory for rectified documents (default \"output\")")
	fmt.Println("  --min-area <px>          Smallest document area (default 1000)")
	fmt.Println("  --max-area-ratio <r>     Largest document area as a fraction of the photo (default 0.9)")
	fmt.Println("  --jpeg-quality <q>       JPEG quality 1-100 (default 95)")
	fmt.Println("  --ocr-language <lang>    Tesseract language (default \"eng\")")
	fmt.Println("  --inbox <dir>            Directory watched by the watch command")
	fmt.Println("  --workers <n>            Photos processed in parallel (default 2)")
	fmt.Println("  --debounce <d>           Quiet period before a new photo is read (default 300ms)")
	fmt.Println("  --log-level <level>      trace, debug, info, warn or error (default info)")
	fmt.Println("  --public-base-url <url>  URL prefix for delivered page links")
	fmt.Println()
	fmt.Printf("Set %sLINE_CHANNEL_TOKEN (or line_channel_token in the config file)\n", config.EnvPrefix)
	fmt.Println("to deliver watch results through LINE instead of the log.")
	fmt.Println()
	fmt.Printf("Every flag can also be set through the environment as %sOUTPUT_DIR and so on.\n", config.EnvPrefix)
}
