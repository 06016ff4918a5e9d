// Package lightgbm trains histogram-based gradient boosted decision trees
// in process. It backs local training of the loan-default classifier when
// no SageMaker account is at hand.
package lightgbm

import (
	"context"
	"math"
	"sort"

	"github.com/YuminosukeSato/loanboost/core/parallel"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// ノード内の行数がこれ以上なら特徴量ごとの分割探索を並列化する
const parallelMinRows = 4096

// Trainer implements the gradient boosting loop
type Trainer struct {
	params TrainingParams

	// Data
	X *mat.Dense
	y []float64

	// Histogram data structures
	cuts [][]float64 // cuts[j][k] is the upper bound of bin k of feature j
	bins [][]int     // bins[j][i] is the bin of row i, -1 when missing

	// Gradient and Hessian
	gradients []float64
	hessians  []float64

	// Raw ensemble score of every training row
	scores []float64

	trees     []Tree
	objective ObjectiveFunction
	initScore float64

	history       []IterationResult
	bestIteration int
	bestScore     float64

	logger log.Logger
}

// IterationResult holds the metrics of one boosting round.
type IterationResult struct {
	Iteration      int
	TrainLoss      float64
	ValidationLoss float64 // NaN without validation data
}

// Histogram represents a histogram bin
type Histogram struct {
	Count   int
	SumGrad float64
	SumHess float64
}

func (h *Histogram) add(grad, hess float64) {
	h.Count++
	h.SumGrad += grad
	h.SumHess += hess
}

func (h Histogram) plus(o Histogram) Histogram {
	return Histogram{Count: h.Count + o.Count, SumGrad: h.SumGrad + o.SumGrad, SumHess: h.SumHess + o.SumHess}
}

func (h Histogram) minus(o Histogram) Histogram {
	return Histogram{Count: h.Count - o.Count, SumGrad: h.SumGrad - o.SumGrad, SumHess: h.SumHess - o.SumHess}
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature     int
	Bin         int
	Threshold   float64
	DefaultLeft bool
	Gain        float64
	LeftCount   int
	RightCount  int
}

// NewTrainer creates a new trainer; zero parameters take their defaults.
func NewTrainer(params TrainingParams) *Trainer {
	params.setDefaults()
	return &Trainer{
		params:        params,
		bestIteration: -1,
		bestScore:     math.NaN(),
		logger:        log.GetLoggerWithName("lightgbm.trainer"),
	}
}

// Fit trains on X and the 0/1 (or real-valued) targets y without early stopping.
func (t *Trainer) Fit(ctx context.Context, X *mat.Dense, y *mat.VecDense) error {
	return t.FitWithValidation(ctx, X, y, nil)
}

// FitWithValidation trains the model and, when valData is given and
// EarlyStopping is positive, stops once the validation metric has not
// improved for EarlyStopping rounds. The ensemble is then cut back to the
// best iteration.
func (t *Trainer) FitWithValidation(ctx context.Context, X *mat.Dense, y *mat.VecDense, valData *ValidationData) error {
	if err := t.params.Validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "fit")
	}
	if y.Len() != rows {
		return errors.NewValidationError("y", "length differs from the rows of X", y.Len())
	}
	if valData != nil {
		if _, vc := valData.X.Dims(); vc != cols {
			return errors.NewValidationError("validation", "feature count differs from training data", vc)
		}
		if vr, _ := valData.X.Dims(); vr != valData.Y.Len() || vr == 0 {
			return errors.NewValidationError("validation", "labels do not match rows", vr)
		}
	}

	objFunc, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objFunc

	t.X = X
	t.y = make([]float64, rows)
	for i := range t.y {
		t.y[i] = y.AtVec(i)
	}
	t.initScore = t.objective.GetInitScore(t.y)
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}
	t.trees = nil
	t.history = nil

	if err := t.buildHistograms(); err != nil {
		return errors.Wrap(err, "histogram building failed")
	}

	var valScores []float64
	metric := t.params.Metric
	if metric == "" {
		metric = t.objective.Name()
	}
	earlyStopping := NewEarlyStopping(0, metric)
	if valData != nil {
		vr, _ := valData.X.Dims()
		valScores = make([]float64, vr)
		for i := range valScores {
			valScores[i] = t.initScore
		}
		earlyStopping = NewEarlyStopping(t.params.EarlyStopping, metric)
	}

	for iter := 0; iter < t.params.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "boosting stopped at iteration %d", iter)
		}

		t.calculateGradients()
		tree := t.buildTree()
		t.trees = append(t.trees, tree)

		res := IterationResult{Iteration: iter, TrainLoss: t.meanLoss(t.scores, t.y), ValidationLoss: math.NaN()}
		if valData != nil {
			res.ValidationLoss = t.evaluateValidation(&tree, valData, valScores)
		}
		t.history = append(t.history, res)

		if t.params.Verbosity > 0 && iter%10 == 0 {
			t.logger.Debug("Training progress",
				log.IterationKey, iter,
				"train_loss", res.TrainLoss,
				"validation_loss", res.ValidationLoss,
			)
		}

		if earlyStopping.Update(iter, res.ValidationLoss) {
			if t.params.Verbosity > 0 {
				t.logger.Info("Early stopping",
					log.IterationKey, iter,
					log.BestIterationKey, earlyStopping.BestIteration,
				)
			}
			break
		}
	}

	t.bestIteration = earlyStopping.GetBestIteration()
	if t.bestIteration >= 0 {
		t.trees = t.trees[:t.bestIteration+1]
		t.bestScore = earlyStopping.BestScore
	}
	return nil
}

// buildHistograms bins every feature once; split search then works on bin
// indices instead of raw values.
func (t *Trainer) buildHistograms() error {
	rows, cols := t.X.Dims()
	t.cuts = make([][]float64, cols)
	t.bins = make([][]int, cols)

	return parallel.Parallelize(cols, func(start, end int) error {
		column := make([]float64, rows)
		for j := start; j < end; j++ {
			mat.Col(column, j, t.X)
			present := make([]float64, 0, rows)
			for _, v := range column {
				if !math.IsNaN(v) {
					present = append(present, v)
				}
			}
			cuts := t.findBinBoundaries(present)

			bins := make([]int, rows)
			for i, v := range column {
				if math.IsNaN(v) {
					bins[i] = -1
					continue
				}
				bins[i] = sort.SearchFloat64s(cuts, v)
			}
			t.cuts[j] = cuts
			t.bins[j] = bins
		}
		return nil
	})
}

// findBinBoundaries returns increasing cut points; a value v falls in the
// first bin k with v <= cuts[k], or in the last bin when it exceeds them all.
func (t *Trainer) findBinBoundaries(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	unique := []float64{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			unique = append(unique, sorted[i])
		}
	}
	m := len(unique)
	if m <= 1 {
		return nil
	}

	if m <= t.params.MaxBin {
		cuts := make([]float64, m-1)
		for k := 0; k < m-1; k++ {
			cuts[k] = (unique[k] + unique[k+1]) / 2
		}
		return cuts
	}

	// equal-frequency bins over the distinct values
	cuts := make([]float64, 0, t.params.MaxBin-1)
	for b := 1; b < t.params.MaxBin; b++ {
		idx := b * m / t.params.MaxBin
		cut := (unique[idx-1] + unique[idx]) / 2
		if len(cuts) == 0 || cut > cuts[len(cuts)-1] {
			cuts = append(cuts, cut)
		}
	}
	return cuts
}

func (t *Trainer) calculateGradients() {
	for i, target := range t.y {
		t.gradients[i] = t.objective.CalculateGradient(t.scores[i], target)
		t.hessians[i] = t.objective.CalculateHessian(t.scores[i], target)
	}
}

func (t *Trainer) buildTree() Tree {
	tree := Tree{ShrinkageRate: t.params.LearningRate, NumLeaves: 1}
	rootIndices := make([]int, len(t.y))
	for i := range rootIndices {
		rootIndices[i] = i
	}
	t.buildNode(&tree, rootIndices, 0)
	return tree
}

// buildNode grows the subtree for indices depth-first and returns its index.
// Leaves add their shrunk value to the cached training scores.
func (t *Trainer) buildNode(tree *Tree, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{LeftChild: -1, RightChild: -1})

	canSplit := len(indices) >= 2*t.params.MinDataInLeaf &&
		(t.params.MaxDepth <= 0 || depth < t.params.MaxDepth) &&
		(t.params.NumLeaves <= 0 || tree.NumLeaves < t.params.NumLeaves)

	var best SplitInfo
	if canSplit {
		best = t.findBestSplit(indices)
	}
	if !canSplit || best.Feature < 0 || best.Gain <= t.params.MinGainToSplit {
		value := t.calculateLeafValue(indices)
		tree.Nodes[nodeIdx].LeafValue = value
		tree.Nodes[nodeIdx].LeafCount = len(indices)
		for _, idx := range indices {
			t.scores[idx] += value * tree.ShrinkageRate
		}
		return nodeIdx
	}

	leftIndices, rightIndices := t.splitData(indices, best)
	tree.NumLeaves++
	left := t.buildNode(tree, leftIndices, depth+1)
	right := t.buildNode(tree, rightIndices, depth+1)

	node := &tree.Nodes[nodeIdx]
	node.SplitFeature = best.Feature
	node.Threshold = best.Threshold
	node.DefaultLeft = best.DefaultLeft
	node.Gain = best.Gain
	node.LeftChild = left
	node.RightChild = right
	return nodeIdx
}

// findBestSplit returns the highest-gain split over all features; ties go
// to the lower feature index. Feature is -1 when no split is possible.
func (t *Trainer) findBestSplit(indices []int) SplitInfo {
	cols := len(t.bins)
	splits := make([]SplitInfo, cols)
	find := func(start, end int) error {
		for j := start; j < end; j++ {
			splits[j] = t.findBestSplitForFeature(indices, j)
		}
		return nil
	}
	if len(indices) < parallelMinRows {
		_ = find(0, cols)
	} else {
		_ = parallel.Parallelize(cols, find)
	}

	best := SplitInfo{Feature: -1, Gain: math.Inf(-1)}
	for _, s := range splits {
		if s.Feature >= 0 && s.Gain > best.Gain {
			best = s
		}
	}
	return best
}

// findBestSplitForFeature scans the bin boundaries of one feature, trying
// missing values on either side.
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	best := SplitInfo{Feature: -1, Gain: math.Inf(-1)}
	numBins := len(t.cuts[feature]) + 1
	if numBins < 2 {
		return best
	}

	hist := make([]Histogram, numBins)
	var missing, total Histogram
	bins := t.bins[feature]
	for _, idx := range indices {
		if b := bins[idx]; b < 0 {
			missing.add(t.gradients[idx], t.hessians[idx])
		} else {
			hist[b].add(t.gradients[idx], t.hessians[idx])
		}
	}
	for _, h := range hist {
		total = total.plus(h)
	}
	total = total.plus(missing)

	var left Histogram
	for k := 0; k < numBins-1; k++ {
		left = left.plus(hist[k])
		for _, missingLeft := range []bool{false, true} {
			if missingLeft && missing.Count == 0 {
				continue
			}
			l := left
			if missingLeft {
				l = l.plus(missing)
			}
			r := total.minus(l)
			if l.Count < t.params.MinDataInLeaf || r.Count < t.params.MinDataInLeaf {
				continue
			}

			gain := t.calculateSplitGain(l.SumGrad, l.SumHess, r.SumGrad, r.SumHess, total.SumGrad, total.SumHess)
			if gain > best.Gain {
				best = SplitInfo{
					Feature:     feature,
					Bin:         k,
					Threshold:   t.cuts[feature][k],
					DefaultLeft: missingLeft,
					Gain:        gain,
					LeftCount:   l.Count,
					RightCount:  r.Count,
				}
			}
		}
	}
	return best
}

func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	leftIndices := make([]int, 0, split.LeftCount)
	rightIndices := make([]int, 0, split.RightCount)
	bins := t.bins[split.Feature]
	for _, idx := range indices {
		b := bins[idx]
		if (b < 0 && split.DefaultLeft) || (b >= 0 && b <= split.Bin) {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

// calculateLeafValue returns the Newton step with L2 regularization.
func (t *Trainer) calculateLeafValue(indices []int) float64 {
	sumGrad := 0.0
	sumHess := 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}

	const epsilon = 1e-10
	return -sumGrad / (sumHess + t.params.Lambda + epsilon)
}

// evaluateValidation adds tree to the cached validation scores and
// returns the mean loss.
func (t *Trainer) evaluateValidation(tree *Tree, valData *ValidationData, scores []float64) float64 {
	_, cols := valData.X.Dims()
	features := make([]float64, cols)
	for i := range scores {
		mat.Row(features, i, valData.X)
		scores[i] += tree.Predict(features)
	}
	targets := valData.Y.RawVector()
	loss := 0.0
	for i, s := range scores {
		loss += t.objective.CalculateLoss(s, targets.Data[i*targets.Inc])
	}
	return loss / float64(len(scores))
}

func (t *Trainer) meanLoss(scores, targets []float64) float64 {
	loss := 0.0
	for i, s := range scores {
		loss += t.objective.CalculateLoss(s, targets[i])
	}
	return loss / float64(len(scores))
}

// History returns the metrics of every round that was run, including
// rounds cut off by early stopping.
func (t *Trainer) History() []IterationResult {
	return t.history
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	_, cols := t.X.Dims()
	trees := make([]Tree, len(t.trees))
	copy(trees, t.trees)
	return &Model{
		Objective:     t.objective.Name(),
		LearningRate:  t.params.LearningRate,
		InitScore:     t.initScore,
		Trees:         trees,
		NumFeatures:   cols,
		BestIteration: t.bestIteration,
		BestScore:     t.bestScore,
		objective:     t.objective,
	}
}
