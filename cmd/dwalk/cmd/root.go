// Package cmd provides the Cobra CLI command structure for dwalk.
//
// This package defines the root command and CLI flags for the dwalk
// distributed directory walker: it loads config, builds an in-process
// peer group, launches every peer's scheduler loop, and prints the final
// report.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/otuschhoff/dwalk/internal/archive"
	"github.com/otuschhoff/dwalk/internal/config"
	"github.com/otuschhoff/dwalk/internal/output"
	"github.com/otuschhoff/dwalk/internal/scheduler"
	"github.com/otuschhoff/dwalk/internal/transport"
)

var (
	peers        int
	configPath   string
	archiveDir   string
	noArchive    bool
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dwalk [paths...]",
	Short: "Distributed work-stealing directory traversal with archival",
	Long: `dwalk walks one or more directory trees using a fixed group of
cooperating peers that steal work from each other and detect global
termination with a nonblocking barrier plus all-reduce. Every traversed
file can optionally be archived into rotating per-peer tar containers.

Examples:
  dwalk /data
  dwalk --peers 8 /data /backup
  dwalk --config dwalk.yaml --no-archive .`,
	RunE: runDwalk,
}

func init() {
	rootCmd.Flags().IntVar(&peers, "peers", 0,
		"number of simulated peers (default from config, else 4)")
	rootCmd.Flags().StringVar(&configPath, "config", "",
		"optional YAML config file")
	rootCmd.Flags().StringVar(&archiveDir, "archive-dir", "",
		"directory for rotating archive containers (default from config, else \".\")")
	rootCmd.Flags().BoolVar(&noArchive, "no-archive", false,
		"skip archival, counters only")
	rootCmd.Flags().StringVar(&outputFormat, "output-format", "table",
		"Output format: table, json")
}

// Execute adds all child commands to the root command and executes it.
func Execute() error {
	return rootCmd.Execute()
}

// applyFlagOverrides layers CLI flag values on top of a loaded config,
// leaving untouched fields at whatever Load already resolved.
func applyFlagOverrides(cfg *config.Config, peersFlag int, archiveDirFlag string, noArchiveFlag bool) {
	if peersFlag > 0 {
		cfg.Peers = peersFlag
	}
	if archiveDirFlag != "" {
		cfg.ArchiveDir = archiveDirFlag
	}
	if noArchiveFlag {
		cfg.ArchiveDir = ""
	}
}

func runDwalk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cfg, peers, archiveDir, noArchive)

	roots := args
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		roots = []string{cwd}
	}

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	transports := transport.NewLocalGroup(cfg.Peers)
	peerList := make([]*scheduler.Peer, cfg.Peers)
	archivers := make([]*archive.RotatingArchiver, cfg.Peers)
	for rank := 0; rank < cfg.Peers; rank++ {
		a := archive.New(cfg.ArchiveDir, rank, cfg.ContainerSizeCap)
		archivers[rank] = a
		peerList[rank] = scheduler.NewPeer(transports[rank], cfg, a, log)
	}
	for _, root := range roots {
		peerList[0].Seed(root)
	}

	results := make([]scheduler.Counters, cfg.Peers)
	errs := make([]error, cfg.Peers)
	var wg sync.WaitGroup
	for rank := range peerList {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			results[rank], errs[rank] = peerList[rank].Run()
		}(rank)
	}
	wg.Wait()

	for _, a := range archivers {
		if err := a.Close(); err != nil {
			return fmt.Errorf("close archive: %w", err)
		}
	}

	for rank, err := range errs {
		if err != nil {
			return fmt.Errorf("peer %d: %w", rank, err)
		}
	}

	formatter := output.NewFormatter(outputFormat)
	fmt.Print(formatter.Format(output.NewReport(results)))

	return nil
}
