// Package topicflow builds topic-model training data from a directory of
// documents: a token dictionary, partitioned bag-of-words and TF-IDF
// corpora, an annotation dataset, and model training over the corpus.
package topicflow

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/cognicore/topicflow/pkg/topicflow/analytics"
	"github.com/cognicore/topicflow/pkg/topicflow/config"
	"github.com/cognicore/topicflow/pkg/topicflow/corpus"
	"github.com/cognicore/topicflow/pkg/topicflow/dataset"
	"github.com/cognicore/topicflow/pkg/topicflow/dictionary"
	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/model"
	"github.com/cognicore/topicflow/pkg/topicflow/pipeline"
	"github.com/cognicore/topicflow/pkg/topicflow/source"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
	"github.com/cognicore/topicflow/pkg/topicflow/stoplist"
	"github.com/cognicore/topicflow/pkg/topicflow/store"
)

// CorpusKind selects the shape of a prepared corpus.
type CorpusKind string

const (
	// BagOfWords stores each sentence as [id, count] pairs.
	BagOfWords CorpusKind = "bow"
	// TFIDF stores each sentence as its tokens joined by spaces.
	TFIDF CorpusKind = "tfidf"
)

// ParseCorpusKind accepts "bow" or "tfidf".
func ParseCorpusKind(s string) (CorpusKind, error) {
	switch CorpusKind(s) {
	case BagOfWords, TFIDF:
		return CorpusKind(s), nil
	}
	return "", internalerr.Configf("kind", "unknown corpus kind %q (want bow or tfidf)", s)
}

// Engine is the main facade
type Engine struct {
	cfg        config.Config
	store      store.Store
	normalizer *ingest.Normalizer
	logger     *log.Logger
	progress   io.Writer
}

// Options configures an Engine
type Options struct {
	Config     config.Config
	Store      store.Store        // dictionary and run ledger; required
	Normalizer *ingest.Normalizer // built from Config.Resources when nil
	Logger     *log.Logger        // log.Default() when nil
	Progress   io.Writer          // progress lines; none when nil
}

// New validates opts and creates an Engine. It fails with a ConfigError
// before any work is started.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, internalerr.Configf("store", "a store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	norm := opts.Normalizer
	if norm == nil {
		comp, err := opts.Config.NewLoader().Load()
		if err != nil {
			return nil, err
		}
		norm = comp.Normalizer
	}
	return &Engine{
		cfg:        opts.Config,
		store:      opts.Store,
		normalizer: norm,
		logger:     logger,
		progress:   opts.Progress,
	}, nil
}

// Close cleanly shuts down the engine's store
func (e *Engine) Close() error {
	return e.store.Close()
}

// Report summarises one pipeline run.
type Report struct {
	pipeline.Stats
	Rows      int // records in the output file, when there is one
	Documents int // records of the requested partition
}

// timed logs how long fn took, whatever its outcome.
func (e *Engine) timed(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	e.logger.Printf("%s took %s", name, time.Since(start).Round(time.Millisecond))
	return err
}

func (e *Engine) source() (source.Source, int, error) {
	dir := source.NewDir(e.cfg.DataPath, e.cfg.Extensions...)
	total, err := source.Count(context.Background(), dir)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", e.cfg.DataPath, err)
	}
	if e.cfg.RateLimit > 0 {
		return source.Throttle(dir, rate.NewLimiter(rate.Limit(e.cfg.RateLimit), 1)), total, nil
	}
	return dir, total, nil
}

// reader returns a read stage configured with the split schema, or without
// partitioning when labelled is false.
func (e *Engine) reader(labelled bool) (*ingest.Reader, error) {
	var sp *split.Splitter
	if labelled {
		var err error
		sp, err = split.New(e.cfg.SplitSchema(), e.cfg.Split.Seed)
		if err != nil {
			return nil, err
		}
	}
	return ingest.NewReader(e.cfg.DataPath, sp), nil
}

// tokens streams every source document as normalized tokens, tokenizing on
// the worker pool and yielding in source order.
func (e *Engine) tokens(ctx context.Context, labelled bool) (iter.Seq2[ingest.Document[[][]string], error], int, error) {
	r, err := e.reader(labelled)
	if err != nil {
		return nil, 0, err
	}
	src, total, err := e.source()
	if err != nil {
		return nil, 0, err
	}
	chain := ingest.NewChain(r, e.normalizer)
	return pipeline.Prefetch(ctx, src.Items(ctx), e.cfg.Workers, "read", chain.Tokens), total, nil
}

// drive runs head over items with the configured policy and progress, and
// records the run in the ledger.
func drive[T any](ctx context.Context, e *Engine, command string, partition split.Label, head stage.Sink[T], items iter.Seq2[T, error], total int) (pipeline.Stats, error) {
	policy, err := e.cfg.FailurePolicy()
	if err != nil {
		return pipeline.Stats{}, err
	}
	opts := []pipeline.Option{pipeline.WithPolicy(policy), pipeline.WithLogger(e.logger)}
	if e.progress != nil {
		opts = append(opts, pipeline.WithObserver(pipeline.NewPrinter(e.progress, e.cfg.ProgressInterval)))
	}

	d := pipeline.New(head, opts...)
	stats, runErr := d.Run(ctx, items, total)

	rec := store.Run{
		ID:        stats.RunID,
		Command:   command,
		Partition: string(partition),
		Processed: stats.Processed,
		Skipped:   stats.Skipped,
		State:     d.State().String(),
		Started:   stats.Started,
		Finished:  stats.Finished,
	}
	if err := e.store.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Printf("%s: record run %s: %v", command, rec.ID, err)
	}
	e.logger.Printf("%s: run %s %s, %d processed, %d skipped", command, rec.ID, rec.State, stats.Processed, stats.Skipped)
	return stats, runErr
}

// Dictionary opens the persisted dictionary, building it from the data
// directory first when none has been saved.
func (e *Engine) Dictionary(ctx context.Context) (*dictionary.Dictionary, error) {
	dict, err := dictionary.OpenOrCreate(ctx, e.store, e.logger)
	if err != nil {
		return nil, err
	}
	if dict.Counters().NumDocs > 0 {
		return dict, nil
	}
	if _, err := e.buildInto(ctx, dict); err != nil {
		return nil, err
	}
	return dict, nil
}

// BuildDictionary runs every document through the dictionary builder,
// growing the persisted dictionary.
func (e *Engine) BuildDictionary(ctx context.Context) (Report, error) {
	var rep Report
	err := e.timed("build dictionary", func() error {
		dict, err := dictionary.OpenOrCreate(ctx, e.store, e.logger)
		if err != nil {
			return err
		}
		rep.Stats, err = e.buildInto(ctx, dict)
		return err
	})
	return rep, err
}

func (e *Engine) buildInto(ctx context.Context, dict *dictionary.Dictionary) (pipeline.Stats, error) {
	items, total, err := e.tokens(ctx, false)
	if err != nil {
		return pipeline.Stats{}, err
	}
	return drive(ctx, e, "dictionary", split.Unset, dict.Builder(), items, total)
}

// PrepareCorpus appends every document to the corpus file of the given
// kind. Documents are labelled with the split schema; partition only selects
// which label the returned Documents count refers to.
func (e *Engine) PrepareCorpus(ctx context.Context, kind CorpusKind, partition split.Label) (Report, error) {
	var rep Report
	err := e.timed("prepare "+string(kind)+" corpus", func() error {
		if err := e.cfg.SplitSchema().Require(partition); err != nil {
			return err
		}
		if err := os.MkdirAll(e.cfg.TrainingPath, 0o755); err != nil {
			return &internalerr.StorageError{Op: "mkdir", Path: e.cfg.TrainingPath, Err: err}
		}
		items, total, err := e.tokens(ctx, true)
		if err != nil {
			return err
		}

		switch kind {
		case BagOfWords:
			dict, err := dictionary.OpenOrCreate(ctx, e.store, e.logger)
			if err != nil {
				return err
			}
			cs, err := corpus.Open[[]dictionary.Pair](e.cfg.TrainingFile(e.cfg.Files.BowCorpus), partition, e.cfg.SplitSchema())
			if err != nil {
				return err
			}
			defer cs.Close()
			rep.Stats, err = drive(ctx, e, "corpus bow", partition, dict.Builder(cs), items, total)
			if err != nil {
				return err
			}
			return fillCounts(&rep, cs)
		case TFIDF:
			cs, err := corpus.Open[string](e.cfg.TrainingFile(e.cfg.Files.TfidfCorpus), partition, e.cfg.SplitSchema())
			if err != nil {
				return err
			}
			defer cs.Close()
			rep.Stats, err = drive(ctx, e, "corpus tfidf", partition, ingest.JoinStage(cs), items, total)
			if err != nil {
				return err
			}
			return fillCounts(&rep, cs)
		}
		return internalerr.Configf("kind", "unknown corpus kind %q", kind)
	})
	return rep, err
}

type counted interface {
	Rows() (int, error)
	Documents() (int, error)
}

func fillCounts(rep *Report, c counted) error {
	var err error
	if rep.Rows, err = c.Rows(); err != nil {
		return err
	}
	rep.Documents, err = c.Documents()
	return err
}

// CorpusStats reports the row and partition document counts of an existing
// corpus file without modifying it.
func (e *Engine) CorpusStats(kind CorpusKind, partition split.Label) (Report, error) {
	var rep Report
	var err error
	switch kind {
	case BagOfWords:
		var cs *corpus.Store[[]dictionary.Pair]
		cs, err = corpus.Open[[]dictionary.Pair](e.cfg.TrainingFile(e.cfg.Files.BowCorpus), partition, e.cfg.SplitSchema())
		if err == nil {
			defer cs.Close()
			err = fillCounts(&rep, cs)
		}
	case TFIDF:
		var cs *corpus.Store[string]
		cs, err = corpus.Open[string](e.cfg.TrainingFile(e.cfg.Files.TfidfCorpus), partition, e.cfg.SplitSchema())
		if err == nil {
			defer cs.Close()
			err = fillCounts(&rep, cs)
		}
	default:
		err = internalerr.Configf("kind", "unknown corpus kind %q", kind)
	}
	return rep, err
}

// Train feeds the sentences of partition from the bag-of-words corpus to u,
// preparing the corpus first if it is empty. It returns the number of
// sentences consumed.
func (e *Engine) Train(ctx context.Context, partition split.Label, u model.Updater) (int, error) {
	var n int
	err := e.timed("train", func() error {
		path := e.cfg.TrainingFile(e.cfg.Files.BowCorpus)
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			e.logger.Printf("train: no corpus data at %s, preparing now", path)
			if _, err := e.PrepareCorpus(ctx, BagOfWords, partition); err != nil {
				return err
			}
		}
		cs, err := corpus.Open[[]dictionary.Pair](path, partition, e.cfg.SplitSchema())
		if err != nil {
			return err
		}
		defer cs.Close()
		n, err = model.Train(ctx, u, cs.Sentences(ctx), e.cfg.BatchSize)
		return err
	})
	return n, err
}

// TrainStream feeds u straight from the source documents, one Update per
// document of partition, without writing a corpus file. Documents are mapped
// to bags of words with the saved dictionary as it stands; unknown tokens are
// dropped. split.Unset trains on every document.
func (e *Engine) TrainStream(ctx context.Context, partition split.Label, u model.Updater) (Report, error) {
	var rep Report
	err := e.timed("stream train", func() error {
		if err := e.cfg.SplitSchema().Require(partition); err != nil {
			return err
		}
		dict, err := e.Dictionary(ctx)
		if err != nil {
			return err
		}
		items, total, err := e.tokens(ctx, true)
		if err != nil {
			return err
		}

		sink := model.Sink(u)
		filter := stage.SinkFunc[ingest.Document[[][]dictionary.Pair]](func(ctx context.Context, doc ingest.Document[[][]dictionary.Pair]) error {
			if partition != split.Unset && doc.Label != partition {
				return nil
			}
			return sink.Process(ctx, doc)
		})
		rep.Stats, err = drive(ctx, e, "train stream", partition, dict.Lookup(filter), items, total)
		return err
	})
	return rep, err
}

// ExportDataset appends every raw document, labelled with the split schema,
// to the annotation dataset file.
func (e *Engine) ExportDataset(ctx context.Context) (Report, error) {
	var rep Report
	err := e.timed("export dataset", func() error {
		if err := os.MkdirAll(e.cfg.TrainingPath, 0o755); err != nil {
			return &internalerr.StorageError{Op: "mkdir", Path: e.cfg.TrainingPath, Err: err}
		}
		r, err := e.reader(true)
		if err != nil {
			return err
		}
		src, total, err := e.source()
		if err != nil {
			return err
		}
		w, err := dataset.Create(e.cfg.TrainingFile(e.cfg.Files.Dataset))
		if err != nil {
			return err
		}
		defer w.Close()
		rep.Stats, err = drive(ctx, e, "dataset", split.Unset, r.Stage(w), src.Items(ctx), total)
		return err
	})
	return rep, err
}

// Vocabulary summarises the corpus vocabulary.
type Vocabulary struct {
	Stats      analytics.Stats
	Top        []analytics.Term
	Candidates []stoplist.Candidate
}

// Vocabulary runs every document through the token chain and reports the
// k most frequent tokens and stopword candidates.
func (e *Engine) Vocabulary(ctx context.Context, k int, th stoplist.Thresholds) (Vocabulary, error) {
	var v Vocabulary
	err := e.timed("vocabulary", func() error {
		items, total, err := e.tokens(ctx, false)
		if err != nil {
			return err
		}
		a := analytics.NewAnalyzer()
		if _, err := drive(ctx, e, "vocab", split.Unset, stage.Sink[ingest.Document[[][]string]](a), items, total); err != nil {
			return err
		}
		v.Stats = a.Snapshot()
		v.Top = v.Stats.TopTerms(k)
		v.Candidates = stoplist.NewManager(nil).SuggestCandidates(v.Stats.StopwordStats(), v.Stats.TotalDocs, th)
		return nil
	})
	return v, err
}

// Partitions counts how many source documents the split schema assigns to
// each partition, without reading them.
func (e *Engine) Partitions(ctx context.Context) (map[split.Label]int, error) {
	sp, err := split.New(e.cfg.SplitSchema(), e.cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	counts := make(map[split.Label]int)
	for item, err := range source.NewDir(e.cfg.DataPath, e.cfg.Extensions...).Items(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", e.cfg.DataPath, err)
		}
		counts[sp.Assign(item.Pos)]++
	}
	return counts, nil
}

// Runs lists the most recent runs, newest first.
func (e *Engine) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	return e.store.Runs(ctx, limit)
}
