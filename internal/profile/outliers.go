package profile

import (
	"encoding/json"
	"math"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// DefaultOutlierThreshold is the robust |z| above which a value counts as an outlier.
const DefaultOutlierThreshold = 3.5

// minOutlierSample is the fewest observations for which MAD is meaningful.
const minOutlierSample = 8

// OutlierSummary counts values whose robust z-score exceeds Threshold.
type OutlierSummary struct {
	Column    string
	Threshold float64
	Count     int
	MaxAbsZ   float64
	Median    float64
	MAD       float64
	// Rows holds the row indexes of flagged values.
	Rows []int
}

func (o OutlierSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"column":    o.Column,
		"threshold": o.Threshold,
		"count":     o.Count,
		"max_abs_z": finite(o.MaxAbsZ),
		"median":    finite(o.Median),
		"mad":       finite(o.MAD),
		"rows":      o.Rows,
	})
}

// Outliers flags values by robust z-score, 0.6745*(x-median)/MAD. Columns with fewer
// than eight values or zero MAD report no outliers.
func Outliers(t *table.Table, column string, threshold float64) (OutlierSummary, error) {
	c, err := numericColumn(t, column)
	if err != nil {
		return OutlierSummary{}, err
	}
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	res := OutlierSummary{Column: column, Threshold: threshold, Median: math.NaN(), MAD: math.NaN()}
	vals := c.Floats()
	if len(vals) < minOutlierSample {
		return res, nil
	}
	res.Median, res.MAD = medianMAD(vals)
	if res.MAD == 0 {
		return res, nil
	}
	for r := 0; r < c.Len(); r++ {
		x, ok := c.Value(r).Float()
		if !ok {
			continue
		}
		az := math.Abs(0.6745 * (x - res.Median) / res.MAD)
		if az > threshold {
			res.Count++
			res.Rows = append(res.Rows, r)
		}
		if az > res.MaxAbsZ {
			res.MaxAbsZ = az
		}
	}
	return res, nil
}
