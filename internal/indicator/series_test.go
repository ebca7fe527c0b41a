package indicator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEma_LengthAndSeed(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	out := Ema(closes, 5)
	if len(out) != len(closes)-5+1 {
		t.Fatalf("expected len %d, got %d", len(closes)-5+1, len(out))
	}
	// Seed is the mean of the first 5 closes.
	if !almostEqual(out[0], 3.0) {
		t.Fatalf("expected seed 3.0, got %v", out[0])
	}
	// Next value follows the recurrence with k = 2/6.
	k := 2.0 / 6.0
	want := 6.0*k + 3.0*(1-k)
	if !almostEqual(out[1], want) {
		t.Fatalf("expected %v, got %v", want, out[1])
	}
}

func TestEma_InsufficientInput(t *testing.T) {
	if Ema([]float64{1, 2, 3}, 5) != nil {
		t.Fatal("expected nil for short input")
	}
	if Ema(nil, 5) != nil {
		t.Fatal("expected nil for empty input")
	}
	if Ema([]float64{1, 2, 3}, 0) != nil {
		t.Fatal("expected nil for non-positive period")
	}
}

func TestEma_FlatSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 1.2345
	}
	for i, v := range Ema(closes, 21) {
		if !almostEqual(v, 1.2345) {
			t.Fatalf("flat series EMA drifted at %d: %v", i, v)
		}
	}
}

func TestRsi_BoundsAndAllGains(t *testing.T) {
	// Strictly rising closes: every delta positive, RSI must be exactly 100.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := Rsi(closes, 14)
	if len(out) != len(closes)-14 {
		t.Fatalf("expected len %d, got %d", len(closes)-14, len(out))
	}
	for i, v := range out {
		if v != 100.0 {
			t.Fatalf("all-gains RSI at %d: expected exactly 100, got %v", i, v)
		}
	}
}

func TestRsi_RangeOnMixedSeries(t *testing.T) {
	closes := []float64{44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41,
		46.22, 45.64, 46.21, 46.25, 45.71, 46.45, 45.78, 45.35, 44.03, 44.18,
		44.22, 44.57, 43.42, 42.66, 43.13}
	out := Rsi(closes, 14)
	if out == nil {
		t.Fatal("expected RSI output")
	}
	for i, v := range out {
		if v < 0 || v > 100 {
			t.Fatalf("RSI out of [0,100] at %d: %v", i, v)
		}
	}
	// Classic Wilder worked example: first value ~70.46.
	if math.Abs(out[0]-70.46) > 0.1 {
		t.Fatalf("expected first RSI near 70.46, got %v", out[0])
	}
}

func TestRsi_InsufficientInput(t *testing.T) {
	closes := make([]float64, 14)
	if Rsi(closes, 14) != nil {
		t.Fatal("period+1 closes required, expected nil")
	}
}

func TestMacd_HistogramIdentity(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 50 + 10*math.Sin(float64(i)/7)
	}
	m := Macd(closes, 12, 26, 9)
	if m == nil {
		t.Fatal("expected MACD output")
	}
	if len(m.Line) != len(m.Signal) || len(m.Signal) != len(m.Hist) {
		t.Fatalf("series misaligned: %d/%d/%d", len(m.Line), len(m.Signal), len(m.Hist))
	}
	for i := range m.Hist {
		if !almostEqual(m.Hist[i], m.Line[i]-m.Signal[i]) {
			t.Fatalf("hist[%d] != line-signal: %v vs %v", i, m.Hist[i], m.Line[i]-m.Signal[i])
		}
	}
}

func TestMacd_InvalidPeriods(t *testing.T) {
	closes := make([]float64, 120)
	if Macd(closes, 26, 12, 9) != nil {
		t.Fatal("fast >= slow must be rejected")
	}
	if Macd(closes, 12, 12, 9) != nil {
		t.Fatal("fast == slow must be rejected")
	}
	if Macd(closes[:20], 12, 26, 9) != nil {
		t.Fatal("short input must yield nil")
	}
}

func TestAtr_ConstantRange(t *testing.T) {
	n := 30
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 101
		lows[i] = 99
		closes[i] = 100
	}
	out := Atr(highs, lows, closes, 10)
	if len(out) != n-10 {
		t.Fatalf("expected len %d, got %d", n-10, len(out))
	}
	for i, v := range out {
		if !almostEqual(v, 2.0) {
			t.Fatalf("constant-range ATR at %d: expected 2.0, got %v", i, v)
		}
	}
}

func TestAtr_GapUsesPrevClose(t *testing.T) {
	// A gap up makes |high - prevClose| the dominant term.
	highs := []float64{10, 11, 20, 21, 21, 21}
	lows := []float64{9, 10, 19, 20, 20, 20}
	closes := []float64{9.5, 10.5, 19.5, 20.5, 20.5, 20.5}
	out := Atr(highs, lows, closes, 3)
	if out == nil {
		t.Fatal("expected ATR output")
	}
	// TR sequence: |11-10|... bar1 tr=1, bar2 tr=max(1, 20-10.5, ...)=9.5, bar3 tr=1.5
	seed := (1.0 + 9.5 + 1.5) / 3
	if !almostEqual(out[0], seed) {
		t.Fatalf("expected seed %v, got %v", seed, out[0])
	}
}

func TestTrailStop_FlipOnlyOnDirectionChange(t *testing.T) {
	// Uptrend, sharp reversal, then recovery: expect exactly one -1 and
	// one +1 flip, each on the bar the direction changed.
	n := 60
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case i < 30:
			closes[i] = 100 + float64(i)
		case i < 40:
			closes[i] = 130 - 4*float64(i-30)
		default:
			closes[i] = 94 + 3*float64(i-40)
		}
	}
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := range closes {
		highs[i] = closes[i] + 0.5
		lows[i] = closes[i] - 0.5
	}

	ts := ComputeTrailStop(highs, lows, closes, 10, 1.5, 10)
	if ts == nil {
		t.Fatal("expected trail stop output")
	}

	downFlips, upFlips := 0, 0
	for i, f := range ts.Flip {
		switch f {
		case -1:
			downFlips++
			if ts.Direction[i] != DirShort {
				t.Fatalf("flip -1 at %d but direction %d", i, ts.Direction[i])
			}
		case 1:
			upFlips++
			if ts.Direction[i] != DirLong {
				t.Fatalf("flip +1 at %d but direction %d", i, ts.Direction[i])
			}
		case 0:
		default:
			t.Fatalf("invalid flip value %d", f)
		}
		if i > 0 && f == 0 && ts.Direction[i] != ts.Direction[i-1] {
			t.Fatalf("direction changed at %d without a flip", i)
		}
	}
	if downFlips != 1 || upFlips != 1 {
		t.Fatalf("expected exactly one flip each way, got -1×%d +1×%d", downFlips, upFlips)
	}
}

func TestTrailStop_LongStopRatchetsUp(t *testing.T) {
	n := 50
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 2*float64(i)
	}
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := range closes {
		highs[i] = closes[i] + 1
		lows[i] = closes[i] - 1
	}

	ts := ComputeTrailStop(highs, lows, closes, 10, 2.0, 10)
	if ts == nil {
		t.Fatal("expected output")
	}
	for i := 1; i < len(ts.Stop); i++ {
		if ts.Direction[i] != DirLong {
			t.Fatalf("steady uptrend should stay long at %d", i)
		}
		if ts.Stop[i] < ts.Stop[i-1] {
			t.Fatalf("long stop decreased at %d: %v -> %v", i, ts.Stop[i-1], ts.Stop[i])
		}
	}
}

func TestComputeCloud_AlignedEqualLengths(t *testing.T) {
	n := 130
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100 + 5*math.Sin(float64(i)/11)
		highs[i] = closes[i] + 1
		lows[i] = closes[i] - 1
	}

	c := ComputeCloud(highs, lows, closes, CloudTenkan, CloudKijun, CloudSenkouB, CloudDisplacement)
	if c == nil {
		t.Fatal("expected cloud output")
	}
	want := (n - 1 - CloudDisplacement) - (CloudSenkouB - 1 + CloudDisplacement) + 1
	for name, s := range map[string][]float64{
		"tenkan": c.Tenkan, "kijun": c.Kijun,
		"senkouA": c.SenkouA, "senkouB": c.SenkouB, "chikou": c.Chikou,
	} {
		if len(s) != want {
			t.Fatalf("%s: expected len %d, got %d", name, want, len(s))
		}
	}

	// Chikou is the close shifted backward by the displacement.
	j := c.StartIndex
	if !almostEqual(c.Chikou[0], closes[j+CloudDisplacement]) {
		t.Fatalf("chikou[0] expected %v, got %v", closes[j+CloudDisplacement], c.Chikou[0])
	}
	// SenkouA is the displaced (tenkan+kijun)/2.
	src := j - CloudDisplacement
	wantA := (midpoint(highs, lows, src, CloudTenkan) + midpoint(highs, lows, src, CloudKijun)) / 2
	if !almostEqual(c.SenkouA[0], wantA) {
		t.Fatalf("senkouA[0] expected %v, got %v", wantA, c.SenkouA[0])
	}
}

func TestComputeCloud_TruncatesWhenTooShort(t *testing.T) {
	n := 100 // senkouB needs 52+26 source bars plus 26 future bars for chikou
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	if ComputeCloud(highs, lows, closes, CloudTenkan, CloudKijun, CloudSenkouB, CloudDisplacement) != nil {
		t.Fatal("expected nil: no index has all components populated")
	}
}
