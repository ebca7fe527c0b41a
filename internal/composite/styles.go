package composite

import "market-alert-engine/internal/model"

// tfOrder fixes the iteration order for timeframe weight maps.
var tfOrder = []model.Timeframe{
	model.TFM1, model.TFM5, model.TFM15, model.TFM30,
	model.TFH1, model.TFH4, model.TFD1,
}

// styleWeights maps each trading style to its timeframe weights.
// Weights sum to 1 per style; timeframes absent from a style's map carry
// zero weight and are skipped entirely during scoring.
var styleWeights = map[model.TradingStyle]map[model.Timeframe]float64{
	model.StyleScalper: {
		model.TFM1:  0.30,
		model.TFM5:  0.30,
		model.TFM15: 0.25,
		model.TFM30: 0.15,
	},
	model.StyleIntraday: {
		model.TFM15: 0.25,
		model.TFM30: 0.25,
		model.TFH1:  0.30,
		model.TFH4:  0.20,
	},
	model.StyleSwing: {
		model.TFH1: 0.25,
		model.TFH4: 0.35,
		model.TFD1: 0.40,
	},
	model.StylePosition: {
		model.TFH4: 0.30,
		model.TFD1: 0.70,
	},
}

// StyleTimeframes returns the style's active timeframes in fixed order.
func StyleTimeframes(style model.TradingStyle) []model.Timeframe {
	weights := styleWeights[style]
	out := make([]model.Timeframe, 0, len(weights))
	for _, tf := range tfOrder {
		if weights[tf] > 0 {
			out = append(out, tf)
		}
	}
	return out
}

// StyleWeight returns the weight of tf for the style (0 when inactive).
func StyleWeight(style model.TradingStyle, tf model.Timeframe) float64 {
	return styleWeights[style][tf]
}
