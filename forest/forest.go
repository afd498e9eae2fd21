// Package forest implements a Random Forest classifier with two structurally
// identical split backends: an exact threshold scan and a fixed-bin
// histogram approximation. Fitted models serialize with gob for artifact
// storage.
package forest

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// ---------------------------
// Types & options
// ---------------------------

// Classifier is a bagged ensemble of CART trees with majority voting.
type Classifier struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int     // 0 => no limit
	MinSamplesSplit int
	MaxFeatures     float64 // fraction of features per split in (0,1]; 0 => all
	Bootstrap       bool
	Seed            int64

	splitter Splitter

	// internals
	classes []int
	trees   []*tree
}

// Option is a functional config for Classifier.
type Option func(*Classifier)

func WithNEstimators(n int) Option     { return func(c *Classifier) { c.NEstimators = n } }
func WithMaxDepth(d int) Option        { return func(c *Classifier) { c.MaxDepth = d } }
func WithMaxFeatures(f float64) Option { return func(c *Classifier) { c.MaxFeatures = f } }
func WithBootstrap(b bool) Option      { return func(c *Classifier) { c.Bootstrap = b } }
func WithSeed(s int64) Option          { return func(c *Classifier) { c.Seed = s } }
func WithSplitter(sp Splitter) Option  { return func(c *Classifier) { c.splitter = sp } }

// New initializes a classifier with sensible defaults: 100 trees, unlimited
// depth, all features per split, bootstrap sampling, the exact backend.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     0,
		Bootstrap:       true,
		Seed:            1,
		splitter:        ExactSplitter{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---------------------------
// Public API: Fit / Predict / Save / Load
// ---------------------------

// Fit trains the forest on X (n rows, p columns) and integer labels y.
// Trees are built concurrently, one goroutine per tree, each with its own
// seeded random source, so a fixed Seed yields an identical forest
// regardless of goroutine scheduling.
func (c *Classifier) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return errors.New("forest: empty X")
	}
	n := len(x)
	if len(y) != n {
		return errors.New("forest: X and y length mismatch")
	}
	p := len(x[0])
	for i := range x {
		if len(x[i]) != p {
			return errors.New("forest: inconsistent number of features in X rows")
		}
	}
	if c.NEstimators <= 0 {
		return errors.New("forest: NEstimators must be positive")
	}
	if c.MaxFeatures < 0 || c.MaxFeatures > 1 {
		return errors.New("forest: MaxFeatures must be a fraction in [0,1]")
	}

	c.classes = uniqueClasses(y)
	classIdx := make(map[int]int, len(c.classes))
	for i, lab := range c.classes {
		classIdx[lab] = i
	}
	yi := make([]int, n)
	for i, lab := range y {
		yi[i] = classIdx[lab]
	}

	cfg := treeConfig{
		maxDepth:        c.MaxDepth,
		minSamplesSplit: c.MinSamplesSplit,
		maxFeatures:     resolveMaxFeatures(c.MaxFeatures, p),
		nClasses:        len(c.classes),
		splitter:        c.splitter,
	}
	if cfg.splitter == nil {
		cfg.splitter = ExactSplitter{}
	}

	c.trees = make([]*tree, c.NEstimators)

	var wg sync.WaitGroup
	for i := 0; i < c.NEstimators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			// Per-tree source keeps the forest deterministic under
			// concurrency.
			rnd := rand.New(rand.NewSource(c.Seed + int64(i)))

			idx := make([]int, n)
			for j := range idx {
				if c.Bootstrap {
					idx[j] = rnd.Intn(n)
				} else {
					idx[j] = j
				}
			}

			c.trees[i] = buildTree(x, yi, idx, cfg, rnd)
		}(i)
	}
	wg.Wait()

	return nil
}

// Predict returns the majority-vote class label for each row of X. Ties
// break toward the lower class label.
func (c *Classifier) Predict(x [][]float64) []int {
	votes := make([][]int, len(c.trees))

	var wg sync.WaitGroup
	for i, t := range c.trees {
		wg.Add(1)
		go func(i int, t *tree) {
			defer wg.Done()
			preds := make([]int, len(x))
			for r := range x {
				preds[r] = t.predict(x[r])
			}
			votes[i] = preds
		}(i, t)
	}
	wg.Wait()

	out := make([]int, len(x))
	counts := make([]int, len(c.classes))
	for r := range x {
		for i := range counts {
			counts[i] = 0
		}
		for i := range votes {
			counts[votes[i][r]]++
		}
		out[r] = c.classes[argmaxCounts(counts)]
	}
	return out
}

// ---------------------------
// Serialization (gob)
// ---------------------------

// forestModel is the gob wire form of a fitted classifier.
type forestModel struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     float64
	Bootstrap       bool
	Seed            int64
	Classes         []int
	Trees           []*tree
}

// MarshalBinary implements encoding.BinaryMarshaler. The split backend is
// not serialized: loaded models predict but are not refitted.
func (c *Classifier) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestModel{
		NEstimators:     c.NEstimators,
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MaxFeatures:     c.MaxFeatures,
		Bootstrap:       c.Bootstrap,
		Seed:            c.Seed,
		Classes:         c.classes,
		Trees:           c.trees,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Classifier) UnmarshalBinary(data []byte) error {
	var m forestModel
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return err
	}
	c.NEstimators = m.NEstimators
	c.MaxDepth = m.MaxDepth
	c.MinSamplesSplit = m.MinSamplesSplit
	c.MaxFeatures = m.MaxFeatures
	c.Bootstrap = m.Bootstrap
	c.Seed = m.Seed
	c.classes = m.Classes
	c.trees = m.Trees
	return nil
}

// ---------------------------
// Helpers
// ---------------------------

func uniqueClasses(y []int) []int {
	seen := map[int]struct{}{}
	var classes []int
	for _, lab := range y {
		if _, ok := seen[lab]; !ok {
			seen[lab] = struct{}{}
			classes = append(classes, lab)
		}
	}
	sort.Ints(classes)
	return classes
}

// resolveMaxFeatures converts the fraction knob to a column count.
func resolveMaxFeatures(frac float64, p int) int {
	if frac <= 0 || frac >= 1 {
		return p
	}
	k := int(math.Floor(frac * float64(p)))
	if k < 1 {
		k = 1
	}
	return k
}
