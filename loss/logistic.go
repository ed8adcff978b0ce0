package loss

import (
	"math"
	"sort"
	"sync"

	"github.com/asyncps/psengine/minibatch"
	"github.com/asyncps/psengine/progress"
)

// Logistic is a reference logistic-regression loss: labels are expected in
// {-1, +1}; prediction is sigmoid(dot(row, weights)).
type Logistic struct {
	rows    minibatch.RowBlock
	weights []float32
	threads int
}

// NewLogistic creates an unbound logistic loss; call Init before use.
func NewLogistic() *Logistic {
	return &Logistic{}
}

func (l *Logistic) Init(rows minibatch.RowBlock, weights []float32, threads int) {
	l.rows = rows
	l.weights = weights
	if threads < 1 {
		threads = 1
	}
	l.threads = threads
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (l *Logistic) dot(row int) float64 {
	idx, val := l.rows.Row(row)
	var sum float64
	for k, j := range idx {
		v := float32(1.0)
		if val != nil {
			v = val[k]
		}
		sum += float64(l.weights[j]) * float64(v)
	}
	return sum
}

func label01(y float32) float64 {
	if y > 0 {
		return 1
	}
	return 0
}

// Evaluate computes average logloss and a rank-based AUC over this
// minibatch and merges them into prog.
func (l *Logistic) Evaluate(prog *progress.Progress) {
	n := l.rows.Size()
	if n == 0 {
		return
	}

	scores := make([]struct {
		score float64
		pos   bool
	}, n)
	var objSum float64

	var wg sync.WaitGroup
	var mu sync.Mutex
	stride := (n + l.threads - 1) / l.threads
	for base := 0; base < n; base += stride {
		end := base + stride
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(base, end int) {
			defer wg.Done()
			var localObj float64
			for i := base; i < end; i++ {
				pred := sigmoid(l.dot(i))
				y := label01(l.rows.Labels[i])
				localObj += logloss(pred, y)
				scores[i] = struct {
					score float64
					pos   bool
				}{score: pred, pos: y == 1}
			}
			mu.Lock()
			objSum += localObj
			mu.Unlock()
		}(base, end)
	}
	wg.Wait()

	prog.NumExamples += int64(n)
	prog.MinibatchCount++
	prog.ObjectiveSum += objSum
	prog.AUCSum += auc(scores)
}

func logloss(pred, y float64) float64 {
	const eps = 1e-12
	if pred < eps {
		pred = eps
	}
	if pred > 1-eps {
		pred = 1 - eps
	}
	return -(y*math.Log(pred) + (1-y)*math.Log(1-pred))
}

// auc computes the Mann-Whitney rank-sum AUC for one minibatch's
// (score, label) pairs. Ties are handled with average ranks.
func auc(scores []struct {
	score float64
	pos   bool
}) float64 {
	n := len(scores)
	if n == 0 {
		return 0
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return scores[order[i]].score < scores[order[j]].score })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && scores[order[j+1]].score == scores[order[i]].score {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avgRank
		}
		i = j + 1
	}

	var sumPosRanks float64
	var nPos, nNeg int
	for idx, s := range scores {
		if s.pos {
			sumPosRanks += ranks[idx]
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (sumPosRanks - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}

// CalcGrad overwrites the weight buffer with per-coordinate logistic
// gradients summed over the bound rows, aligned to local column index.
func (l *Logistic) CalcGrad() {
	grad := make([]float32, len(l.weights))
	n := l.rows.Size()
	for i := 0; i < n; i++ {
		pred := sigmoid(l.dot(i))
		errTerm := pred - label01(l.rows.Labels[i])
		idx, val := l.rows.Row(i)
		for k, j := range idx {
			v := float32(1.0)
			if val != nil {
				v = val[k]
			}
			grad[j] += float32(errTerm) * v
		}
	}
	copy(l.weights, grad)
}
