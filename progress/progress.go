// Package progress implements the mergeable progress record and the
// two-level aggregator built on it: a per-worker WorkerMonitor feeding a
// rate-limited TimeReporter into the scheduler's DistMonitor, which its
// display loop polls and clears on its own schedule.
package progress

import "fmt"

// Progress is an associative, commutative counter/sum record. The zero value
// is the identity element of Merge.
type Progress struct {
	NumExamples    int64
	MinibatchCount int64
	NnzW           int64
	NnzV           int64
	ObjectiveSum   float64
	AUCSum         float64
	ClampedGrads   int64
}

// Merge adds p2's counters into p componentwise. Merge(p, Progress{}) == p.
func (p *Progress) Merge(p2 Progress) {
	p.NumExamples += p2.NumExamples
	p.MinibatchCount += p2.MinibatchCount
	p.NnzW += p2.NnzW
	p.NnzV += p2.NnzV
	p.ObjectiveSum += p2.ObjectiveSum
	p.AUCSum += p2.AUCSum
	p.ClampedGrads += p2.ClampedGrads
}

// Empty reports whether no examples have been recorded yet.
func (p Progress) Empty() bool {
	return p.NumExamples == 0 && p.MinibatchCount == 0
}

// HeadStr is the column header for PrintStr, modeled on the original
// trainer's VectorProgress::HeadStr.
func HeadStr() string {
	return " ttl #ex  inc #ex |   |w|_0       |V|_0  | logloss   AUC"
}

// PrintStr renders one display line given the progress accumulated so far
// this interval (p) and the running total before this interval (prev).
func (p Progress) PrintStr(prev Progress) string {
	if p.NumExamples == 0 {
		return ""
	}
	num := float64(p.NumExamples)
	logloss := p.ObjectiveSum / num
	auc := 0.0
	if p.MinibatchCount > 0 {
		auc = p.AUCSum / float64(p.MinibatchCount)
	}
	return fmt.Sprintf("%7.2g  %7.2g | %9.4g  %9.4g | %6.4f  %6.4f",
		float64(prev.NumExamples)+num, num,
		float64(prev.NnzW+p.NnzW), float64(prev.NnzV+p.NnzV),
		logloss, auc)
}
