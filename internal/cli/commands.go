package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/cognicore/topicflow/pkg/topicflow"
	"github.com/cognicore/topicflow/pkg/topicflow/pmi"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
	"github.com/cognicore/topicflow/pkg/topicflow/stoplist"
)

func (a *app) splitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split",
		Short: "Show how many documents each partition receives",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			counts, err := e.Partitions(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			names := cfg.SplitSchema().Names()
			if len(names) == 0 {
				names = []split.Label{split.Unset}
			}
			for _, name := range names {
				label := string(name)
				if name == split.Unset {
					label = "(unset)"
				}
				fmt.Fprintf(w, "%s\t%d\n", label, counts[name])
			}
			return w.Flush()
		},
	}
}

func (a *app) dictionaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dictionary",
		Short: "Grow the token dictionary from every document",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rep, err := e.BuildDictionary(cmd.Context())
			if err != nil {
				return err
			}
			dict, err := e.Dictionary(cmd.Context())
			if err != nil {
				return err
			}
			c := dict.Counters()
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents processed, %d skipped\n", rep.Processed, rep.Skipped)
			fmt.Fprintf(cmd.OutOrStdout(), "%d tokens from %d sentences (%d positions)\n", dict.Len(), c.NumDocs, c.NumPos)
			return nil
		},
	}
}

func (a *app) corpusCmd() *cobra.Command {
	var kind, part string

	build := &cobra.Command{
		Use:   "build",
		Short: "Append every document to a corpus file",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := topicflow.ParseCorpusKind(kind)
			if err != nil {
				return err
			}
			e, cfg, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			label, err := partition(cfg, part)
			if err != nil {
				return err
			}

			rep, err := e.PrepareCorpus(cmd.Context(), k, label)
			if err != nil {
				return err
			}
			printCorpus(cmd, k, label, rep)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count the rows and partition documents of a corpus file",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := topicflow.ParseCorpusKind(kind)
			if err != nil {
				return err
			}
			e, cfg, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			label, err := partition(cfg, part)
			if err != nil {
				return err
			}

			rep, err := e.CorpusStats(k, label)
			if err != nil {
				return err
			}
			printCorpus(cmd, k, label, rep)
			return nil
		},
	}

	corpus := &cobra.Command{
		Use:   "corpus",
		Short: "Build or inspect the bag-of-words and TF-IDF corpora",
	}
	corpus.PersistentFlags().StringVar(&kind, "kind", string(topicflow.BagOfWords), "corpus kind: bow or tfidf")
	corpus.PersistentFlags().StringVar(&part, "partition", "", "partition to count (default: training)")
	corpus.AddCommand(build, stats)
	return corpus
}

func printCorpus(cmd *cobra.Command, kind topicflow.CorpusKind, label split.Label, rep topicflow.Report) {
	out := cmd.OutOrStdout()
	if rep.RunID != "" {
		fmt.Fprintf(out, "run %s: %d processed, %d skipped in %s\n",
			rep.RunID, rep.Processed, rep.Skipped, rep.Elapsed().Round(time.Millisecond))
	}
	name := string(label)
	if label == split.Unset {
		name = "all"
	}
	fmt.Fprintf(out, "%s corpus: %d rows, %d %s documents\n", kind, rep.Rows, rep.Documents, name)
}

func (a *app) trainCmd() *cobra.Command {
	var (
		part     string
		top      int
		minCount int64
		stream   bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Feed a partition of the bag-of-words corpus to the co-occurrence model",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			label, err := partition(cfg, part)
			if err != nil {
				return err
			}

			counter := pmi.NewCounter()
			if stream {
				if _, err := e.TrainStream(cmd.Context(), label, counter); err != nil {
					return err
				}
			} else if _, err := e.Train(cmd.Context(), label, counter); err != nil {
				return err
			}
			dict, err := e.Dictionary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "trained on %d sentences, %d distinct pairs\n", counter.Total(), counter.UniquePairs())
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, s := range counter.TopPairs(pmi.NewCalculator(1), top, minCount) {
				x, _ := dict.Token(s.A)
				y, _ := dict.Token(s.B)
				fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\n", x, y, s.Count, s.NPMI)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&part, "partition", "", "partition to train on (default: training)")
	cmd.Flags().IntVar(&top, "top", 20, "strongest pairs to print")
	cmd.Flags().Int64Var(&minCount, "min-count", 2, "ignore pairs seen in fewer sentences")
	cmd.Flags().BoolVar(&stream, "stream", false, "train from the source documents without writing a corpus file")
	return cmd
}

func (a *app) datasetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dataset",
		Short: "Append every raw document to the annotation dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rep, err := e.ExportDataset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents written to %s, %d skipped\n",
				rep.Processed, cfg.TrainingFile(cfg.Files.Dataset), rep.Skipped)
			return nil
		},
	}
}

type vocabReport struct {
	TotalDocs          int64           `json:"total_docs"`
	TotalTokens        int64           `json:"total_tokens"`
	Sentences          int64           `json:"sentences"`
	TopTerms           []termJSON      `json:"top_terms"`
	StopwordCandidates []candidateJSON `json:"stopword_candidates"`
}

type termJSON struct {
	Token string `json:"token"`
	TF    int64  `json:"tf"`
	DF    int64  `json:"df"`
}

type candidateJSON struct {
	Token     string  `json:"token"`
	Score     float64 `json:"score"`
	DFPercent float64 `json:"df_percent"`
	IDF       float64 `json:"idf"`
}

func (a *app) vocabCmd() *cobra.Command {
	var top int
	th := stoplist.DefaultThresholds()
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Report frequent tokens and stopword candidates as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			v, err := e.Vocabulary(cmd.Context(), top, th)
			if err != nil {
				return err
			}
			rep := vocabReport{
				TotalDocs:   v.Stats.TotalDocs,
				TotalTokens: v.Stats.TotalTokens,
				Sentences:   v.Stats.Sentences,
				TopTerms:    make([]termJSON, 0, len(v.Top)),
			}
			for _, t := range v.Top {
				rep.TopTerms = append(rep.TopTerms, termJSON{Token: t.Token, TF: t.TF, DF: t.DF})
			}
			for _, c := range v.Candidates {
				rep.StopwordCandidates = append(rep.StopwordCandidates, candidateJSON{
					Token:     c.Token,
					Score:     c.Score,
					DFPercent: c.Reason.DFPercent,
					IDF:       c.Reason.IDF,
				})
			}

			out, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "most frequent tokens to report")
	cmd.Flags().Float64Var(&th.DFPercent, "df-percent", th.DFPercent, "flag tokens found in more than this percentage of documents")
	cmd.Flags().Int64Var(&th.MinDocs, "min-docs", th.MinDocs, "suggest no candidates for smaller corpora")
	return cmd
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			runs, err := e.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMMAND\tPARTITION\tSTATE\tPROCESSED\tSKIPPED\tSTARTED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.Command, r.Partition, r.State, r.Processed, r.Skipped, r.Started.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "runs to list")
	return cmd
}
