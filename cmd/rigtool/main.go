// rigtool is a CLI utility for importing and inspecting skinned, animated
// COLLADA and binary glTF assets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Faultbox/rigport/internal/config"
	"github.com/Faultbox/rigport/internal/logger"
	"github.com/Faultbox/rigport/pkg/asset"
	"github.com/Faultbox/rigport/pkg/encoding"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

func main() {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.FileConfig(), true); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	a := &app{
		cfg: cfg,
		importer: asset.NewImporter(asset.Options{
			TimeEpsilon: cfg.Import.TimeEpsilon,
			Logger:      logger.Named("import"),
			CacheModels: cfg.Import.CacheModels,
		}),
	}

	switch command {
	case "info":
		err = a.cmdInfo(args)
	case "joints", "tree":
		err = a.cmdJoints(args)
	case "clips":
		err = a.cmdClips(args)
	case "dump":
		err = a.cmdDump(args)
	case "batch":
		err = a.cmdBatch(args)
	case "fmt":
		err = cmdFmt(args)
	case "config":
		err = a.cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err, cfg.Output.ShowOffsets))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rigtool - skinned asset importer

Usage:
  rigtool [global options] <command> [options]

Commands:
  info <file>                Show model summary
  joints <file>              Print the joint hierarchy
  clips [-at t] <file>       List animation clips, optionally posed at time t
  dump [-depth n] <file>     Dump the imported model
  batch <file|dir>...        Import many files in parallel
  fmt <file.dae>             Re-indent a markup document to stdout
  config show                Print the effective configuration
  config init [-force] [path]
                             Write the default configuration file

Global options:
  -config <path>   Config file (default ./rigport.yaml or user config dir)
  -debug           Enable debug logging
  -log-file <path> Also log to a rotated file
  -epsilon <s>     Key time merge tolerance
  -workers <n>     Parallel imports for batch
  -cache           Keep imported models in memory

Examples:
  rigtool info character.glb
  rigtool joints character.dae
  rigtool clips -at 0.5 character.glb
  rigtool -workers 8 batch ./assets`)
}

type app struct {
	cfg      *config.Config
	importer *asset.Importer
}

func (a *app) load(args []string, usage string) (*skeletal.Model, error) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool "+usage)
		os.Exit(1)
	}
	return a.importer.ImportFile(args[0])
}

func (a *app) cmdInfo(args []string) error {
	m, err := a.load(args, "info <file>")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Format:    %s\n", asset.Detect(data))
	fmt.Printf("Name:      %s\n", m.Name)
	fmt.Printf("Joints:    %d (%d roots)\n", len(m.Joints), len(m.Roots()))
	fmt.Printf("Vertices:  %d\n", len(m.Vertices))
	fmt.Printf("Triangles: %d\n", m.TriangleCount())
	fmt.Printf("Clips:     %d\n", len(m.Clips))
	for _, c := range m.Clips {
		fmt.Printf("  %-20s %.3fs\n", c.Name, c.Duration)
	}
	return nil
}

func (a *app) cmdJoints(args []string) error {
	m, err := a.load(args, "joints <file>")
	if err != nil {
		return err
	}
	writeJointTree(os.Stdout, m)
	return nil
}

func (a *app) cmdClips(args []string) error {
	fs := flag.NewFlagSet("clips", flag.ExitOnError)
	at := fs.Float64("at", -1, "Print joint world positions at this time")
	fs.Parse(args)

	m, err := a.load(fs.Args(), "clips [-at t] <file>")
	if err != nil {
		return err
	}
	if len(m.Clips) == 0 {
		fmt.Println("No animation clips")
		return nil
	}
	for i := range m.Clips {
		c := &m.Clips[i]
		writeClip(os.Stdout, m, c)
		if *at >= 0 {
			writePose(os.Stdout, m, c, float32(*at))
		}
	}
	return nil
}

func (a *app) cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	depth := fs.Int("depth", a.cfg.Output.DumpDepth, "Maximum nesting depth (0 = unlimited)")
	fs.Parse(args)

	m, err := a.load(fs.Args(), "dump [-depth n] <file>")
	if err != nil {
		return err
	}

	shown := *m
	if n := a.cfg.Output.MaxVertices; n >= 0 && len(shown.Vertices) > n {
		shown.Vertices = shown.Vertices[:n]
		fmt.Printf("(showing %d of %d vertices)\n", n, len(m.Vertices))
	}
	cs := spew.ConfigState{
		Indent:                  "  ",
		MaxDepth:                *depth,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cs.Fdump(os.Stdout, shown)
	return nil
}

func (a *app) cmdBatch(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool batch <file|dir>...")
		os.Exit(1)
	}
	paths, err := collectAssets(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .dae or .glb files found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results := a.importer.ImportBatch(ctx, paths, a.cfg.Import.Workers)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("FAIL %s: %s\n", r.Path, describeError(r.Err, a.cfg.Output.ShowOffsets))
			continue
		}
		fmt.Printf("ok   %s (%d joints, %d triangles, %d clips)\n",
			r.Path, len(r.Model.Joints), r.Model.TriangleCount(), len(r.Model.Clips))
	}
	fields := []zap.Field{
		zap.Int("files", len(results)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)),
	}
	if cache := a.importer.Cache(); cache != nil {
		hits, misses := cache.Stats()
		fields = append(fields,
			zap.Int("cache_hits", hits),
			zap.Int("cache_misses", misses),
			zap.Int("cached_models", cache.Len()))
	}
	logger.Info("batch finished", fields...)

	fmt.Printf("\n%d imported, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func (a *app) cmdConfig(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool config <show|init> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "show":
		return a.cfg.Write(os.Stdout)
	case "init":
		fs := flag.NewFlagSet("config init", flag.ExitOnError)
		force := fs.Bool("force", false, "Overwrite an existing file")
		fs.Parse(args[1:])

		cfg := config.Default()
		path := config.DefaultPath()
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		if err := cfg.SaveTo(path, *force); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown config command %q", args[0])
	}
}

// collectAssets expands directories into the asset files they contain.
func collectAssets(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".dae", ".glb":
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func cmdFmt(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool fmt <file.dae>")
		os.Exit(1)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	text, err := encoding.ToUTF8(data)
	if err != nil {
		return err
	}
	doc, err := markup.Parse(text)
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(os.Stdout)
	return err
}
