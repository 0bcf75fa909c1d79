package services

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// trainerConfig holds logistic regression hyperparameters
type trainerConfig struct {
	Epochs       int
	LearningRate float64
	L2           float64
	TestFraction float64
	Seed         int64
	Threshold    float64
}

func (c trainerConfig) withDefaults() trainerConfig {
	if c.Epochs <= 0 {
		c.Epochs = 50
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.L2 < 0 {
		c.L2 = 0
	}
	if c.TestFraction < 0 || c.TestFraction >= 1 {
		c.TestFraction = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		c.Threshold = 0.5
	}
	return c
}

// splitTrainTest shuffles deterministically and carves off the test
// fraction. With few rows the test split may come back empty.
func splitTrainTest(X [][]float64, y []float64, fraction float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(X))

	nTest := int(float64(len(X)) * fraction)
	nTrain := len(X) - nTest

	for i, idx := range perm {
		if i < nTrain {
			trainX = append(trainX, X[idx])
			trainY = append(trainY, y[idx])
		} else {
			testX = append(testX, X[idx])
			testY = append(testY, y[idx])
		}
	}
	return trainX, trainY, testX, testY
}

// columnStats computes per-column mean and standard deviation.
// Degenerate columns report a zero stddev; scoring treats that as 1.
func columnStats(X [][]float64) (means, stddevs []float64) {
	if len(X) == 0 {
		return nil, nil
	}
	cols := len(X[0])
	means = make([]float64, cols)
	stddevs = make([]float64, cols)

	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		means[j] = stat.Mean(col, nil)
		sd := stat.StdDev(col, nil)
		if math.IsNaN(sd) {
			sd = 0
		}
		stddevs[j] = sd
	}
	return means, stddevs
}

// standardized returns a copy of X scaled to zero mean and unit
// variance using the supplied statistics
func standardized(X [][]float64, means, stddevs []float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			sd := stddevs[j]
			if sd == 0 {
				sd = 1
			}
			scaled[j] = (v - means[j]) / sd
		}
		out[i] = scaled
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// trainLogistic fits weights by stochastic gradient descent with L2
// regularization. X must already be standardized; the sample order is
// reshuffled each epoch from the seeded source, so runs with the same
// seed reproduce exactly.
func trainLogistic(X [][]float64, y []float64, cfg trainerConfig) (weights []float64, intercept float64) {
	if len(X) == 0 {
		return nil, 0
	}
	weights = make([]float64, len(X[0]))
	rng := rand.New(rand.NewSource(cfg.Seed))

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, i := range rng.Perm(len(X)) {
			p := sigmoid(floats.Dot(weights, X[i]) + intercept)
			g := p - y[i]
			for j := range weights {
				weights[j] -= cfg.LearningRate * (g*X[i][j] + cfg.L2*weights[j])
			}
			intercept -= cfg.LearningRate * g
		}
	}
	return weights, intercept
}

// evaluateBinary scores a fitted model on standardized samples
func evaluateBinary(weights []float64, intercept float64, X [][]float64, y []float64, threshold float64) map[string]float64 {
	const eps = 1e-12

	var tp, fp, tn, fn float64
	var logLoss float64
	for i := range X {
		p := sigmoid(floats.Dot(weights, X[i]) + intercept)
		clamped := math.Min(math.Max(p, eps), 1-eps)
		logLoss -= y[i]*math.Log(clamped) + (1-y[i])*math.Log(1-clamped)

		predicted := 0.0
		if p >= threshold {
			predicted = 1.0
		}
		switch {
		case predicted == 1 && y[i] == 1:
			tp++
		case predicted == 1 && y[i] == 0:
			fp++
		case predicted == 0 && y[i] == 0:
			tn++
		default:
			fn++
		}
	}

	n := float64(len(X))
	precision, recall, f1 := 0.0, 0.0, 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return map[string]float64{
		"accuracy":  (tp + tn) / n,
		"precision": precision,
		"recall":    recall,
		"f1":        f1,
		"log_loss":  logLoss / n,
	}
}
