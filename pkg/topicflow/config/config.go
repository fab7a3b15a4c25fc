package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/pipeline"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
)

// Config is passed explicitly to every component that needs paths, worker
// counts or split settings.
type Config struct {
	DataPath     string   `yaml:"data_path" mapstructure:"data_path"`
	Extensions   []string `yaml:"extensions" mapstructure:"extensions"`
	TrainingPath string   `yaml:"training_path" mapstructure:"training_path"`
	Workers      int      `yaml:"workers" mapstructure:"workers"`

	Split  SplitConfig `yaml:"split" mapstructure:"split"`
	Policy string      `yaml:"policy" mapstructure:"policy"`

	Files     Files     `yaml:"files" mapstructure:"files"`
	Resources Resources `yaml:"resources" mapstructure:"resources"`

	BatchSize        int           `yaml:"batch_size" mapstructure:"batch_size"`
	ProgressInterval time.Duration `yaml:"progress_interval" mapstructure:"progress_interval"`
	RateLimit        float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // files per second, 0 = unlimited
}

// SplitConfig holds the partition schema and the splitter seed. A missing
// schema means the default 80/10/10 split; Disabled turns partitioning off.
type SplitConfig struct {
	Seed     uint64             `yaml:"seed" mapstructure:"seed"`
	Schema   map[string]float64 `yaml:"schema,omitempty" mapstructure:"schema"`
	Disabled bool               `yaml:"disabled" mapstructure:"disabled"`
}

// Files names the artefacts written under TrainingPath.
type Files struct {
	Dictionary  string `yaml:"dictionary" mapstructure:"dictionary"`
	BowCorpus   string `yaml:"bow_corpus" mapstructure:"bow_corpus"`
	TfidfCorpus string `yaml:"tfidf_corpus" mapstructure:"tfidf_corpus"`
	Dataset     string `yaml:"dataset" mapstructure:"dataset"`
}

// Resources points at optional YAML word lists.
type Resources struct {
	Stoplist string `yaml:"stoplist" mapstructure:"stoplist"`
	Lexicon  string `yaml:"lexicon" mapstructure:"lexicon"`
	Phrases  string `yaml:"phrases" mapstructure:"phrases"`
}

// DefaultWorkers leaves one core for the driver loop.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	schema := make(map[string]float64)
	for name, frac := range split.DefaultSchema() {
		schema[string(name)] = frac
	}
	return Config{
		DataPath:     "data",
		Extensions:   []string{".txt"},
		TrainingPath: "training",
		Workers:      DefaultWorkers(),
		Split:        SplitConfig{Seed: 1, Schema: schema},
		Policy:       "abort",
		Files: Files{
			Dictionary:  "dictionary.db",
			BowCorpus:   "lda-corpus.dat",
			TfidfCorpus: "tf-idf-corpus.dat",
			Dataset:     "dataset.json",
		},
		BatchSize:        2000,
		ProgressInterval: 500 * time.Millisecond,
	}
}

// SetDefaults registers DefaultConfig with v so Unmarshal fills any key the
// file, environment and flags leave unset. The split schema is left out:
// viper would merge a default map key by key into a configured one.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("data_path", d.DataPath)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("training_path", d.TrainingPath)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("split.seed", d.Split.Seed)
	v.SetDefault("split.disabled", false)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("files.dictionary", d.Files.Dictionary)
	v.SetDefault("files.bow_corpus", d.Files.BowCorpus)
	v.SetDefault("files.tfidf_corpus", d.Files.TfidfCorpus)
	v.SetDefault("files.dataset", d.Files.Dataset)
	v.SetDefault("resources.stoplist", "")
	v.SetDefault("resources.lexicon", "")
	v.SetDefault("resources.phrases", "")
	v.SetDefault("batch_size", d.BatchSize)
	v.SetDefault("progress_interval", d.ProgressInterval)
	v.SetDefault("rate_limit", 0.0)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Split.Schema) == 0 {
		cfg.Split.Schema = DefaultConfig().Split.Schema
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first constraint cfg violates as a ConfigError.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return internalerr.Configf("data_path", "must not be empty")
	}
	if c.TrainingPath == "" {
		return internalerr.Configf("training_path", "must not be empty")
	}
	if c.Workers < 1 {
		return internalerr.Configf("workers", "must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return internalerr.Configf("batch_size", "must be at least 1, got %d", c.BatchSize)
	}
	if c.RateLimit < 0 {
		return internalerr.Configf("rate_limit", "must not be negative")
	}
	if err := c.SplitSchema().Validate(); err != nil {
		return err
	}
	if _, err := c.FailurePolicy(); err != nil {
		return err
	}
	for field, name := range map[string]string{
		"files.dictionary":   c.Files.Dictionary,
		"files.bow_corpus":   c.Files.BowCorpus,
		"files.tfidf_corpus": c.Files.TfidfCorpus,
		"files.dataset":      c.Files.Dataset,
	} {
		if name == "" {
			return internalerr.Configf(field, "must not be empty")
		}
	}
	return nil
}

// SplitSchema converts the configured fractions to a split.Schema. It is
// nil when partitioning is disabled.
func (c Config) SplitSchema() split.Schema {
	if c.Split.Disabled || len(c.Split.Schema) == 0 {
		return nil
	}
	s := make(split.Schema, len(c.Split.Schema))
	for name, frac := range c.Split.Schema {
		s[split.Label(name)] = frac
	}
	return s
}

// FailurePolicy parses Policy.
func (c Config) FailurePolicy() (pipeline.Policy, error) {
	return pipeline.ParsePolicy(c.Policy)
}

// TrainingFile returns the path of a file under TrainingPath.
func (c Config) TrainingFile(name string) string {
	return filepath.Join(c.TrainingPath, name)
}

// YAML encodes c in the layout read back by FromViper.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
