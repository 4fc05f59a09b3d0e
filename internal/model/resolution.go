package model

// Provenance describes where the data in a resolution result came from.
type Provenance string

const (
	// ProvenanceCached means the store alone satisfied the query.
	ProvenanceCached Provenance = "cached"
	// ProvenanceLive means a live provider fetch contributed to the result.
	ProvenanceLive Provenance = "live"
	// ProvenanceCachedStale means the provider failed and stored data was
	// served even though it did not satisfy the freshness requirements.
	ProvenanceCachedStale Provenance = "cached-stale"
	// ProvenanceUnavailable means neither the store nor the provider could
	// supply any data.
	ProvenanceUnavailable Provenance = "unavailable"
)

// FetchDecision describes the action the freshness policy chose for a query.
type FetchDecision string

const (
	DecisionServeCached       FetchDecision = "serve-cached"
	DecisionFetchLiveAndStore FetchDecision = "fetch-live-and-store"
	DecisionFetchLiveFallback FetchDecision = "fetch-live-fallback-on-store-failure"
)

// PriceResult is the payload returned for a price series query.
type PriceResult struct {
	Ticker     string        `json:"ticker"`
	Records    []PriceRecord `json:"records"`
	Provenance Provenance    `json:"provenance"`
	Decision   FetchDecision `json:"decision"`
	Persisted  bool          `json:"persisted"`
}

// NewsResult is the payload returned for a news query.
type NewsResult struct {
	Ticker     string         `json:"ticker,omitempty"`
	Documents  []NewsDocument `json:"documents"`
	Provenance Provenance     `json:"provenance"`
	Decision   FetchDecision  `json:"decision"`
	Persisted  bool           `json:"persisted"`
}
