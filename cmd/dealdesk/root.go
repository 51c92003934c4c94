package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dealdesk/internal/core"
	"github.com/JonMunkholm/dealdesk/internal/logging"
)

// app carries what every subcommand needs once the root pre-run has read
// the configuration.
type app struct {
	configPath string
	dataset    string
	service    *core.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "dealdesk",
		Short:         "Work with deal desk CSV datasets",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: .dealdesk.yaml in . or $HOME)")
	flags.StringP("dataset", "d", "deals", "dataset the file belongs to")
	flags.String("definitions", "", "YAML file with extra dataset definitions")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newImportCmd(a),
		newRecordsCmd(a),
		newEditCmd(a),
		newAddCmd(a),
		newBoardCmd(a),
		newCountsCmd(a),
		newSampleCmd(a),
		newDatasetsCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	v, err := loadConfig(cmd, a.configPath)
	if err != nil {
		return err
	}
	logging.Setup(v.GetString(cfgKeyLogLevel), "pretty")

	if path := v.GetString(cfgKeyDefinitions); path != "" {
		if _, err := core.LoadDefinitions(path); err != nil {
			return err
		}
	}

	a.dataset = v.GetString(cfgKeyDataset)
	if _, ok := core.Get(a.dataset); !ok {
		return fmt.Errorf("%w: %s (see 'dealdesk datasets')", core.ErrUnknownDataset, a.dataset)
	}
	a.service = core.NewService(nil, core.ServiceOptions{})
	return nil
}

// load imports path into the configured dataset.
func (a *app) load(ctx context.Context, path string) (core.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.ImportResult{}, err
	}
	defer f.Close()
	return a.service.Import(ctx, a.dataset, f)
}

// save writes the dataset to path through a temp file in the same directory.
func (a *app) save(ctx context.Context, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dealdesk-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := a.service.Export(ctx, a.dataset, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// parseAssignments turns Field=Value arguments into a map.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected Field=Value)", p)
		}
		out[strings.TrimSpace(name)] = value
	}
	return out, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config needed.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dealdesk", version)
		},
	}
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List registered datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, core.DatasetCount())
			for _, def := range core.All() {
				rows = append(rows, []string{def.Info.Key, def.Info.Label, def.Info.KeyField, def.Info.StageField})
			}
			return writeTable(cmd.OutOrStdout(), "Datasets", []string{"Key", "Label", "Key field", "Stage field"}, rows)
		},
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
