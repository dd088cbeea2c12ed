package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hig-dev/nimbus/internal/plugin"
	"github.com/hig-dev/nimbus/pkg/compression"
	"github.com/hig-dev/nimbus/pkg/config"
	"github.com/hig-dev/nimbus/pkg/logger"
	"github.com/hig-dev/nimbus/pkg/metrics"
	"github.com/hig-dev/nimbus/pkg/storage"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var logLevel string

	root := &cobra.Command{
		Use:   "nimbus",
		Short: "Nimbus - In-memory columnar store with shared-dictionary compaction",
		Long: `Nimbus is an in-memory columnar analytics store. Its compaction pass merges
similar per-chunk dictionaries into shared dictionaries, reducing the memory
footprint of dictionary-encoded columns without changing visible table contents.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Setup(logger.Options{Level: logLevel, Console: true})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Nimbus v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newCompactCommand())
	root.AddCommand(newSnapshotCommand())
	root.AddCommand(newRestoreCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCompactCommand() *cobra.Command {
	var (
		configPath string
		chunkSize  int
		threshold  float64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "compact <csv-file>",
		Short: "Ingest a CSV file and run the shared-dictionary compaction pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passCfg := config.DefaultPassConfig()
			if configPath != "" {
				loaded, err := config.LoadPassConfig(configPath)
				if err != nil {
					return err
				}
				passCfg = loaded
			}
			if !cmd.Flags().Changed("chunk-size") {
				chunkSize = passCfg.ChunkSize
			}

			table, err := storage.LoadCSV(args[0], storage.CSVOptions{
				ChunkSize: chunkSize,
				HasHeader: true,
			})
			if err != nil {
				return err
			}

			manager := storage.NewManager()
			if err := manager.AddTable(tableNameFromPath(args[0]), table); err != nil {
				return err
			}

			bytesBefore := manager.TotalMemoryUsage()

			// Threshold precedence: flag, then config file, then the
			// environment/default resolution inside the plugin.
			opts := []plugin.Option{plugin.WithCollector(metrics.NewCollector("nimbus"))}
			switch {
			case cmd.Flags().Changed("threshold"):
				opts = append(opts, plugin.WithThreshold(threshold))
			case configPath != "":
				opts = append(opts, plugin.WithThreshold(passCfg.JaccardIndexThreshold))
			}
			compactor := plugin.New(manager, opts...)
			if err := compactor.Start(); err != nil {
				return err
			}
			defer func() { _ = compactor.Stop() }()

			stats := compactor.Stats()
			if jsonOutput {
				out, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("Rows ingested:        %d\n", table.RowCount())
			fmt.Printf("Bytes before:         %d\n", bytesBefore)
			fmt.Printf("Bytes after:          %d\n", manager.TotalMemoryUsage())
			fmt.Printf("Bytes saved:          %d\n", stats.TotalBytesSaved)
			fmt.Printf("Merged dictionaries:  %d\n", stats.NumMergedDictionaries)
			fmt.Printf("Shared dictionaries:  %d\n", stats.NumSharedDictionaries)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "pass configuration YAML file")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "rows per chunk")
	cmd.Flags().Float64Var(&threshold, "threshold", config.DefaultJaccardIndexThreshold, "jaccard-index threshold in [0,1]")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print stats as JSON")
	return cmd
}

func newSnapshotCommand() *cobra.Command {
	var (
		configPath string
		chunkSize  int
		codec      string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <csv-file> <out-file>",
		Short: "Ingest a CSV file and persist it as a compressed snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				passCfg, err := config.LoadPassConfig(configPath)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("chunk-size") {
					chunkSize = passCfg.ChunkSize
				}
				if !cmd.Flags().Changed("codec") {
					codec = passCfg.SnapshotCodec
				}
			}

			table, err := storage.LoadCSV(args[0], storage.CSVOptions{
				ChunkSize: chunkSize,
				HasHeader: true,
			})
			if err != nil {
				return err
			}

			if err := storage.WriteSnapshot(table, args[1], compression.Algorithm(codec)); err != nil {
				return err
			}

			logger.Get().Info("snapshot written",
				zap.String("path", args[1]),
				zap.Int("rows", table.RowCount()),
				zap.String("codec", codec))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "pass configuration YAML file")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "rows per chunk")
	cmd.Flags().StringVar(&codec, "codec", "lz4", "snapshot compression (lz4, zstd, none)")
	return cmd
}

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <snapshot-file>",
		Short: "Load a snapshot and print its schema and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := storage.ReadSnapshot(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Columns:\n")
			for _, def := range table.Definitions() {
				fmt.Printf("  %s %s\n", def.Name, def.Type)
			}
			fmt.Printf("Chunks: %d\n", table.ChunkCount())
			fmt.Printf("Rows:   %d\n", table.RowCount())
			fmt.Printf("Bytes:  %d\n", table.MemoryUsage())
			return nil
		},
	}
}

// tableNameFromPath derives a table name from the CSV file name.
func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
