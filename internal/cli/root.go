// Package cli is the topicflow command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cognicore/topicflow/pkg/topicflow"
	"github.com/cognicore/topicflow/pkg/topicflow/config"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
	"github.com/cognicore/topicflow/pkg/topicflow/store/sqlite"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	quiet   bool
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "topicflow",
		Short: "Build topic-model training data from a directory of documents",
		Long: `topicflow reads every document under the data directory, splits it into
sentences and normalized tokens, and writes a token dictionary, partitioned
bag-of-words and TF-IDF corpora, and an annotation dataset.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (TOPICFLOW_*)
3. Config file (./topicflow.yaml or --config)
4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./topicflow.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "no progress output")
	flags.String("data", "", "directory of source documents")
	flags.String("training", "", "directory for generated files")
	flags.Int("workers", 0, "tokenizer workers")
	flags.Uint64("seed", 0, "split seed")
	flags.String("policy", "", "failure policy: abort or skip")

	for key, flag := range map[string]string{
		"data_path":     "data",
		"training_path": "training",
		"workers":       "workers",
		"split.seed":    "seed",
		"policy":        "policy",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind --%s: %v", flag, err))
		}
	}

	root.AddCommand(
		a.splitCmd(),
		a.dictionaryCmd(),
		a.corpusCmd(),
		a.trainCmd(),
		a.datasetCmd(),
		a.vocabCmd(),
		a.runsCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// initConfig reads the config file and TOPICFLOW_* environment variables.
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("topicflow")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("TOPICFLOW")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	} else if a.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", a.v.ConfigFileUsed())
	}
	return nil
}

func (a *app) config() (config.Config, error) {
	return config.FromViper(a.v)
}

// engine opens the sqlite store under the training directory and wires an
// Engine that logs and reports progress to stderr.
func (a *app) engine(cmd *cobra.Command) (*topicflow.Engine, config.Config, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, cfg, err
	}
	if err := os.MkdirAll(cfg.TrainingPath, 0o755); err != nil {
		return nil, cfg, fmt.Errorf("create %s: %w", cfg.TrainingPath, err)
	}
	st, err := sqlite.OpenSQLite(cmd.Context(), cfg.TrainingFile(cfg.Files.Dictionary))
	if err != nil {
		return nil, cfg, err
	}

	stderr := cmd.ErrOrStderr()
	logOut := io.Discard
	if a.verbose {
		logOut = stderr
	}
	var progress io.Writer
	if !a.quiet {
		progress = stderr
	}

	e, err := topicflow.New(topicflow.Options{
		Config:   cfg,
		Store:    st,
		Logger:   log.New(logOut, "topicflow: ", log.LstdFlags),
		Progress: progress,
	})
	if err != nil {
		st.Close()
		return nil, cfg, err
	}
	return e, cfg, nil
}

// partition resolves a --partition value. Empty means the training partition
// when the data is split, and every record when it is not.
func partition(cfg config.Config, s string) (split.Label, error) {
	schema := cfg.SplitSchema()
	if s == "" {
		if schema.Has(split.Training) {
			return split.Training, nil
		}
		return split.Unset, nil
	}
	label := split.Label(s)
	return label, schema.Require(label)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "topicflow %s\n", Version)
		},
	}
}
