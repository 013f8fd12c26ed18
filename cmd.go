package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kartoza/aquacheck/internal/config"
	"github.com/kartoza/aquacheck/internal/logging"
	"github.com/kartoza/aquacheck/internal/nn"
	"github.com/kartoza/aquacheck/internal/quality"
	"github.com/kartoza/aquacheck/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errPredictionFailed = errors.New("prediction failed")

// app carries the global flags and the state built from them.
type app struct {
	configPath string
	modelPath  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "aquacheck",
		Short: "Water potability classifier",
		Long: `aquacheck classifies a water sample as safe or not safe to drink from five
readings (pH, turbidity, nitrate, lead, dissolved oxygen) and suggests
treatments for readings outside their acceptable ranges.

Run without a subcommand to start the web server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runServe,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (default ./config.toml when present)")
	root.PersistentFlags().StringVar(&a.modelPath, "model", "", "model artifact to load (.yaml, .yml, .json, .db, .sqlite, .sqlite3)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one sample and print the response envelope",
		Long: `Runs the full pipeline once and prints the JSON envelope.
Readings that are not given default to 0. Exits with status 1 when the
envelope reports an error.

Example:
  aquacheck predict --ph 7.2 --turbidity 1.5 --nitrate 4 --lead 2 --oxygen 7.5`,
		Args: cobra.NoArgs,
		RunE: a.runPredict,
	}
	for _, name := range quality.Parameters {
		predictCmd.Flags().String(name, "", fmt.Sprintf("%s reading", name))
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a summary of the loaded model",
		Args:  cobra.NoArgs,
		RunE:  a.runInspect,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the loaded model to a YAML or SQLite artifact",
		Long: `Re-encodes the loaded model. The output format follows the file
extension: .yaml or .yml for YAML, .db, .sqlite or .sqlite3 for SQLite.

Example:
  aquacheck export --model models/water_quality_rf.yaml --out water_quality_rf.db`,
		Args: cobra.NoArgs,
		RunE: a.runExport,
	}
	exportCmd.Flags().String("out", "", "output file")
	_ = exportCmd.MarkFlagRequired("out")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aquacheck %s\n", version)
		},
	}

	root.AddCommand(serveCmd, predictCmd, inspectCmd, exportCmd, versionCmd)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.modelPath != "" {
		cfg.Model.Path = a.modelPath
	}
	if cfg.Version == "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.Log, a.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) loadModel() (*nn.Forest, error) {
	forest, err := nn.Load(a.cfg.Model.Path, quality.Parameters[:])
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", a.cfg.Model.Path, err)
	}
	s := forest.Summary()
	a.logger.Info("model loaded",
		zap.String("path", a.cfg.Model.Path),
		zap.String("name", s.Name),
		zap.Int("trees", s.Trees),
		zap.Int("nodes", s.Nodes))
	return forest, nil
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	forest, err := a.loadModel()
	if err != nil {
		return err
	}

	srv, err := server.New(*a.cfg, forest, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeoutDuration())
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	a.logger.Info("starting aquacheck",
		zap.String("version", a.cfg.Version),
		zap.String("addr", a.cfg.Server.Addr()),
		zap.String("env", a.cfg.Env()))
	return g.Wait()
}

func (a *app) runPredict(cmd *cobra.Command, args []string) error {
	forest, err := a.loadModel()
	if err != nil {
		return err
	}

	input := quality.Values{}
	for _, name := range quality.Parameters {
		if cmd.Flags().Changed(name) {
			input[name], _ = cmd.Flags().GetString(name)
		}
	}

	svc := quality.NewService(forest, a.logger.Named("quality"))
	env, evalErr := svc.Evaluate(input)
	if err := writeJSON(cmd.OutOrStdout(), env); err != nil {
		return err
	}
	if evalErr != nil {
		return fmt.Errorf("%w: %s", errPredictionFailed, env.Message)
	}
	return nil
}

func (a *app) runInspect(cmd *cobra.Command, args []string) error {
	forest, err := a.loadModel()
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), forest.Summary())
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	forest, err := a.loadModel()
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(out)); ext {
	case ".db", ".sqlite", ".sqlite3":
		if err := nn.SaveSQLite(forest, out); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	case ".yaml", ".yml":
		data, err := nn.EncodeYAML(forest)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}

	if _, err := nn.Load(out, quality.Parameters[:]); err != nil {
		return fmt.Errorf("exported model does not load back: %w", err)
	}
	a.logger.Info("model exported", zap.String("out", out))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
