package features

import (
	"SigForge/internal/domain/models"
	"SigForge/internal/domain/repository"
)

// TimeframeBias returns the directional bias of one timeframe from the
// fast/slow EMA relation: +1 bullish, -1 bearish, 0 flat.
func TimeframeBias(fv *models.FeatureVector, tf repository.Timeframe) int {
	fast, okF := fv.Get(models.TFKey(models.FeatEMAFast, tf.String()))
	slow, okS := fv.Get(models.TFKey(models.FeatEMASlow, tf.String()))
	if !okF || !okS || fast == slow {
		return 0
	}
	if fast > slow {
		return 1
	}
	return -1
}

// Confluence scores cross-timeframe agreement in [0,1]: the weighted
// fraction of timeframes whose bias matches the dominant bias, with higher
// timeframes weighted more (weight = position + 1 in the ascending set).
// Returns 0 when no timeframe has a bias.
func Confluence(fv *models.FeatureVector, timeframes []repository.Timeframe) float64 {
	var weighted, total float64
	var dominant int

	for i, tf := range timeframes {
		w := float64(i + 1)
		total += w
		dominant += TimeframeBias(fv, tf) * int(w)
	}
	if total == 0 || dominant == 0 {
		return 0
	}

	dir := 1
	if dominant < 0 {
		dir = -1
	}
	for i, tf := range timeframes {
		if TimeframeBias(fv, tf) == dir {
			weighted += float64(i + 1)
		}
	}
	return weighted / total
}

// DominantBias returns the weighted dominant direction across timeframes.
func DominantBias(fv *models.FeatureVector, timeframes []repository.Timeframe) models.Direction {
	var dominant int
	for i, tf := range timeframes {
		dominant += TimeframeBias(fv, tf) * (i + 1)
	}
	switch {
	case dominant > 0:
		return models.DirectionLong
	case dominant < 0:
		return models.DirectionShort
	default:
		return models.DirectionHold
	}
}
