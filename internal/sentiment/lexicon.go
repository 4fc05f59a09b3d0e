package sentiment

// Finance-oriented word lists used by the scorer. Derived from the
// Loughran-McDonald categories, trimmed to terms common in market headlines.
var positiveWords = map[string]struct{}{
	"advance":      {},
	"beat":         {},
	"beats":        {},
	"boom":         {},
	"boost":        {},
	"breakthrough": {},
	"bullish":      {},
	"buyback":      {},
	"climb":        {},
	"climbs":       {},
	"exceed":       {},
	"exceeds":      {},
	"gain":         {},
	"gains":        {},
	"growth":       {},
	"high":         {},
	"improve":      {},
	"improved":     {},
	"improves":     {},
	"jump":         {},
	"jumps":        {},
	"momentum":     {},
	"optimistic":   {},
	"outperform":   {},
	"outperforms":  {},
	"profit":       {},
	"profitable":   {},
	"profits":      {},
	"rally":        {},
	"rallies":      {},
	"rebound":      {},
	"record":       {},
	"recover":      {},
	"recovery":     {},
	"rise":         {},
	"rises":        {},
	"soar":         {},
	"soars":        {},
	"strong":       {},
	"surge":        {},
	"surges":       {},
	"surpass":      {},
	"upbeat":       {},
	"upgrade":      {},
	"upgraded":     {},
	"upside":       {},
	"win":          {},
	"wins":         {},
}

var negativeWords = map[string]struct{}{
	"bankrupt":      {},
	"bankruptcy":    {},
	"bearish":       {},
	"collapse":      {},
	"concern":       {},
	"concerns":      {},
	"crash":         {},
	"crisis":        {},
	"cut":           {},
	"cuts":          {},
	"decline":       {},
	"declines":      {},
	"deficit":       {},
	"downgrade":     {},
	"downgraded":    {},
	"downside":      {},
	"downturn":      {},
	"drop":          {},
	"drops":         {},
	"fall":          {},
	"falls":         {},
	"fear":          {},
	"fears":         {},
	"fraud":         {},
	"investigation": {},
	"lawsuit":       {},
	"layoff":        {},
	"layoffs":       {},
	"loss":          {},
	"losses":        {},
	"low":           {},
	"miss":          {},
	"missed":        {},
	"misses":        {},
	"plunge":        {},
	"plunges":       {},
	"recession":     {},
	"risk":          {},
	"risks":         {},
	"selloff":       {},
	"short":         {},
	"shortfall":     {},
	"sink":          {},
	"sinks":         {},
	"slump":         {},
	"slumps":        {},
	"tumble":        {},
	"tumbles":       {},
	"warn":          {},
	"warning":       {},
	"warns":         {},
	"weak":          {},
	"weakness":      {},
}
