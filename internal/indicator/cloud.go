package indicator

// Default cloud parameters (tenkan/kijun/senkou-B lookbacks and the
// forward/backward displacement).
const (
	CloudTenkan       = 9
	CloudKijun        = 26
	CloudSenkouB      = 52
	CloudDisplacement = 26
)

// Cloud holds the five cloud series over a common index range. All
// slices share one length; index j corresponds to bar StartIndex+j.
// SenkouA/SenkouB at a bar are the values plotted there (computed
// displacement bars earlier); Chikou at a bar is the close from
// displacement bars later. Shifted samples with no underlying source
// bar are truncated, never padded, which is what pins the range.
type Cloud struct {
	StartIndex int
	Tenkan     []float64
	Kijun      []float64
	SenkouA    []float64
	SenkouB    []float64
	Chikou     []float64
}

// ComputeCloud computes the trend-cross cloud over closed bars. Returns
// nil when the series cannot produce a single fully-populated sample.
func ComputeCloud(highs, lows, closes []float64, tenkanP, kijunP, senkouBP, displacement int) *Cloud {
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil
	}
	if tenkanP <= 0 || kijunP <= 0 || senkouBP <= 0 || displacement < 0 {
		return nil
	}

	// First bar where every component (including the displaced senkou
	// lines) has a source window, and last bar where chikou still has a
	// future close to borrow.
	lo := senkouBP - 1 + displacement
	if k := kijunP - 1 + displacement; k > lo {
		lo = k
	}
	if t := tenkanP - 1; t > lo {
		lo = t
	}
	hi := n - 1 - displacement
	if lo > hi {
		return nil
	}

	out := &Cloud{
		StartIndex: lo,
		Tenkan:     make([]float64, hi-lo+1),
		Kijun:      make([]float64, hi-lo+1),
		SenkouA:    make([]float64, hi-lo+1),
		SenkouB:    make([]float64, hi-lo+1),
		Chikou:     make([]float64, hi-lo+1),
	}
	for j := lo; j <= hi; j++ {
		i := j - lo
		out.Tenkan[i] = midpoint(highs, lows, j, tenkanP)
		out.Kijun[i] = midpoint(highs, lows, j, kijunP)

		src := j - displacement
		out.SenkouA[i] = (midpoint(highs, lows, src, tenkanP) + midpoint(highs, lows, src, kijunP)) / 2
		out.SenkouB[i] = midpoint(highs, lows, src, senkouBP)
		out.Chikou[i] = closes[j+displacement]
	}
	return out
}
