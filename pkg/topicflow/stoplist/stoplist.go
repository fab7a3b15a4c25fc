package stoplist

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the stopword set used by the normalizer. It is safe for
// concurrent use, since normalization may run on several workers.
type Manager struct {
	mu    sync.RWMutex
	stops map[string]Reason
}

// Reason explains why a token became a stopword
type Reason struct {
	Builtin   bool    // part of the initial list
	HighDF    bool    // appears in most documents
	DFPercent float64 // document frequency as a percentage
	IDF       float64 // inverse document frequency
}

// NewManager creates a manager seeded with the given stopwords
func NewManager(initial []string) *Manager {
	stops := make(map[string]Reason, len(initial))
	for _, s := range initial {
		stops[strings.ToLower(s)] = Reason{Builtin: true}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	m.mu.RLock()
	_, ok := m.stops[token]
	m.mu.RUnlock()
	return ok
}

// Add adds a token with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.mu.Lock()
	m.stops[strings.ToLower(token)] = reason
	m.mu.Unlock()
}

// Remove removes a token
func (m *Manager) Remove(token string) {
	m.mu.Lock()
	delete(m.stops, strings.ToLower(token))
	m.mu.Unlock()
}

// All returns every stopword, sorted
func (m *Manager) All() []string {
	m.mu.RLock()
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	m.mu.RUnlock()
	sort.Strings(result)
	return result
}

// Len returns the number of stopwords
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stops)
}

// File is the YAML layout of a stoplist file.
//
//	terms: [the, and, of]
type File struct {
	Terms []string `yaml:"terms"`
}

// LoadYAML reads a stoplist file.
func LoadYAML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stoplist: %w", err)
	}
	return f.Terms, nil
}

// Stats holds per-token corpus statistics for candidate evaluation
type Stats struct {
	Token     string
	DF        int64
	DFPercent float64
	IDF       float64
}

// Candidate is a suggested stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent float64 // e.g. 60: the token appears in 60% of documents
	MinDocs   int64   // ignore corpora smaller than this
}

// DefaultThresholds returns the thresholds used by the vocab command.
func DefaultThresholds() Thresholds {
	return Thresholds{DFPercent: 60, MinDocs: 20}
}

// SuggestCandidates returns tokens whose document frequency marks them as
// carrying little topical signal, highest score first.
func (m *Manager) SuggestCandidates(stats []Stats, totalDocs int64, th Thresholds) []Candidate {
	if totalDocs < th.MinDocs {
		return nil
	}
	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) || s.DFPercent <= th.DFPercent {
			continue
		}
		candidates = append(candidates, Candidate{
			Token: s.Token,
			Reason: Reason{
				HighDF:    true,
				DFPercent: s.DFPercent,
				IDF:       s.IDF,
			},
			Score: s.DFPercent / 100.0,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Token < candidates[j].Token
	})
	return candidates
}
