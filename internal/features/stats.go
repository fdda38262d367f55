package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ClassStat summarizes one feature column within one class: the arithmetic
// mean and the standard error of the mean (population standard deviation over
// the square root of the class sample count).
type ClassStat struct {
	Label  string
	Count  int
	Mean   float64
	StdErr float64
}

// classAccumulator is a streaming (single-pass) mean/variance accumulator, so
// statistics never require materializing the feature column twice.
type classAccumulator struct {
	n     int
	sum   float64
	sumSq float64
}

func (c *classAccumulator) add(v float64) {
	c.n++
	c.sum += v
	c.sumSq += v * v
}

func (c *classAccumulator) stat(label string) ClassStat {
	mean := c.sum / float64(c.n)
	variance := c.sumSq/float64(c.n) - mean*mean
	if variance < 0 {
		// Cancellation can push the one-pass variance a hair below zero.
		variance = 0
	}
	return ClassStat{
		Label:  label,
		Count:  c.n,
		Mean:   mean,
		StdErr: math.Sqrt(variance) / math.Sqrt(float64(c.n)),
	}
}

// ClassStats partitions the table's rows by label and computes, for every
// power-bin column and every configured class, the mean and standard error.
// A configured class with zero epochs makes the standard error undefined
// (0/0) and is reported as an error naming the class. Rows flagged by a
// propagated arithmetic edge case are excluded from statistics; power-bin
// columns themselves are never the flagged quantity, but excluding the row
// keeps one bad epoch from silently skewing the aggregate.
func (t *Table) ClassStats(classes []string) (map[PowerKey]map[string]ClassStat, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes configured")
	}

	acc := make(map[PowerKey]map[string]*classAccumulator, len(t.powerKeys))
	for _, key := range t.powerKeys {
		acc[key] = make(map[string]*classAccumulator, len(classes))
		for _, class := range classes {
			acc[key][class] = &classAccumulator{}
		}
	}

	for _, row := range t.Rows {
		if row.Flagged {
			continue
		}
		for _, key := range t.powerKeys {
			byClass, ok := acc[key]
			if !ok {
				continue
			}
			ca, ok := byClass[row.Label]
			if !ok {
				return nil, fmt.Errorf("epoch %d has label %q which is not a configured class", row.EpochIndex, row.Label)
			}
			ca.add(row.Power[key])
		}
	}

	out := make(map[PowerKey]map[string]ClassStat, len(acc))
	for key, byClass := range acc {
		out[key] = make(map[string]ClassStat, len(byClass))
		for class, ca := range byClass {
			if ca.n == 0 {
				return nil, fmt.Errorf("class %q has no epochs: standard error is undefined", class)
			}
			out[key][class] = ca.stat(class)
		}
	}
	return out, nil
}

// ColumnStats is the two-pass computation over a materialized column. The
// streaming path above is the production path; this one backs spot checks and
// small ad hoc summaries.
func ColumnStats(values []float64, label string) ClassStat {
	return ClassStat{
		Label:  label,
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		StdErr: stat.PopStdDev(values, nil) / math.Sqrt(float64(len(values))),
	}
}
