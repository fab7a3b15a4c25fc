package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

// workspace writes a few documents and a config file pointing at them.
func workspace(t *testing.T) (cfgPath, training string) {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	training = filepath.Join(root, "training")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	docs := []string{
		"Interest rates rose sharply. Markets reacted quickly.",
		"Credit markets tightened. Interest payments increased.",
		"Liquidity remained adequate. Markets stabilized later.",
		"Revenue declined sharply. Interest income compressed.",
	}
	for i, d := range docs {
		path := filepath.Join(data, fmt.Sprintf("doc-%d.txt", i))
		if err := os.WriteFile(path, []byte(d), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfgPath = filepath.Join(root, "topicflow.yaml")
	yml := fmt.Sprintf("data_path: %s\ntraining_path: %s\nworkers: 2\nsplit:\n  disabled: true\n", data, training)
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, training
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "topicflow dev\n" {
		t.Errorf("version = %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "topicflow.yaml")
	if _, err := run(t, "config", "init", path); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "config", "init", path); err == nil {
		t.Error("init should refuse to overwrite without --force")
	}
	if _, err := run(t, "config", "init", "--force", path); err != nil {
		t.Errorf("--force: %v", err)
	}

	out, err := run(t, "--config", path, "--workers", "7", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "workers: 7") || !strings.Contains(out, "bow_corpus: lda-corpus.dat") {
		t.Errorf("config show:\n%s", out)
	}
}

func TestConfigShowReadsEnvironment(t *testing.T) {
	cfgPath, _ := workspace(t)
	t.Setenv("TOPICFLOW_POLICY", "skip")
	out, err := run(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "policy: skip") {
		t.Errorf("environment not applied:\n%s", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "config", "show"); err == nil {
		t.Error("an explicit config file that does not exist should fail")
	}
}

func TestPipelineCommands(t *testing.T) {
	cfgPath, training := workspace(t)
	q := []string{"--config", cfgPath, "-q"}

	out, err := run(t, append(q, "split")...)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "(unset)  4" {
		t.Errorf("split = %q", out)
	}

	out, err = run(t, append(q, "dictionary")...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "4 documents processed, 0 skipped") || !strings.Contains(out, "from 8 sentences") {
		t.Errorf("dictionary = %q", out)
	}
	if _, err := os.Stat(filepath.Join(training, "dictionary.db")); err != nil {
		t.Errorf("dictionary not persisted: %v", err)
	}

	out, err = run(t, append(q, "corpus", "build", "--kind", "tfidf")...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "tfidf corpus: 4 rows, 4 all documents") {
		t.Errorf("corpus build = %q", out)
	}

	out, err = run(t, append(q, "corpus", "stats", "--kind", "tfidf")...)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "tfidf corpus: 4 rows, 4 all documents" {
		t.Errorf("corpus stats = %q", out)
	}

	out, err = run(t, append(q, "train", "--min-count", "1", "--top", "3")...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "trained on 8 sentences") {
		t.Errorf("train = %q", out)
	}

	out, err = run(t, append(q, "dataset")...)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "4 documents written") {
		t.Errorf("dataset = %q", out)
	}

	out, err = run(t, append(q, "vocab", "--top", "2", "--min-docs", "1")...)
	if err != nil {
		t.Fatal(err)
	}
	var rep vocabReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("vocab output is not JSON: %v\n%s", err, out)
	}
	if rep.TotalDocs != 4 || len(rep.TopTerms) != 2 {
		t.Errorf("vocab = %+v", rep)
	}

	out, err = run(t, append(q, "runs")...)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"dictionary", "corpus tfidf", "corpus bow", "dataset", "vocab"} {
		if !strings.Contains(out, name) {
			t.Errorf("runs missing %q:\n%s", name, out)
		}
	}
}

func TestUnknownPartition(t *testing.T) {
	cfgPath, _ := workspace(t)
	_, err := run(t, "--config", cfgPath, "-q", "corpus", "build", "--partition", "holdout")
	if err == nil || !strings.Contains(err.Error(), "holdout") {
		t.Errorf("expected unknown partition error, got %v", err)
	}
}

func TestUnknownCorpusKind(t *testing.T) {
	cfgPath, _ := workspace(t)
	if _, err := run(t, "--config", cfgPath, "corpus", "stats", "--kind", "lsa"); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}

func TestTrainStream(t *testing.T) {
	cfgPath, training := workspace(t)
	out, err := run(t, "--config", cfgPath, "-q", "train", "--stream", "--min-count", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "trained on 8 sentences") {
		t.Errorf("train --stream = %q", out)
	}
	if _, err := os.Stat(filepath.Join(training, "lda-corpus.dat")); !os.IsNotExist(err) {
		t.Error("--stream should not write the bow corpus")
	}

	out, err = run(t, "--config", cfgPath, "runs")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "train stream") {
		t.Errorf("runs missing streamed training:\n%s", out)
	}
}

func TestBoundFlagsReachConfig(t *testing.T) {
	cfgPath, _ := workspace(t)
	out, err := run(t, "--config", cfgPath, "--seed", "42", "--policy", "skip", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"seed: 42", "policy: skip", "workers: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}
