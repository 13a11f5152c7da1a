package usecase

import "time"

// Config carries the ranking parameters for one engine instance. Values are
// validated against the stated ranges at service construction; normalize only
// backfills zero values so tests can set the fields they care about.
type Config struct {
	RetrievalK          int
	RerankK             int
	SimilarityThreshold float64
	SemanticWeight      float64
	LexicalWeight       float64
	TableBoost          float64
	// BoostTriggerTokens are lowercased phrases whose presence in a query
	// marks it as numeric/quantitative; any digit in the query also counts.
	BoostTriggerTokens    []string
	LengthTargetMin       int
	LengthTargetMax       int
	CitationOverlapWindow int
	QueryTimeout          time.Duration
	// AllowLexicalFallback keeps serving lexical-only results when the
	// embedding collaborator is down instead of failing the query.
	AllowLexicalFallback bool
}

func DefaultConfig() Config {
	return Config{
		RetrievalK:          10,
		RerankK:             5,
		SimilarityThreshold: 0.7,
		SemanticWeight:      0.6,
		LexicalWeight:       0.3,
		TableBoost:          1.2,
		BoostTriggerTokens: []string{
			"how many", "total", "sum", "average", "count", "amount",
			"number", "percent", "$", "€", "£", "₽",
		},
		LengthTargetMin:       200,
		LengthTargetMax:       2000,
		CitationOverlapWindow: 1,
		QueryTimeout:          2 * time.Second,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetrievalK <= 0 {
		out.RetrievalK = def.RetrievalK
	}
	if out.RerankK <= 0 {
		out.RerankK = def.RerankK
	}
	if out.SimilarityThreshold <= 0 {
		out.SimilarityThreshold = def.SimilarityThreshold
	}
	if out.SemanticWeight <= 0 {
		out.SemanticWeight = def.SemanticWeight
	}
	if out.LexicalWeight <= 0 {
		out.LexicalWeight = def.LexicalWeight
	}
	if out.TableBoost < 1 {
		out.TableBoost = def.TableBoost
	}
	if out.BoostTriggerTokens == nil {
		out.BoostTriggerTokens = def.BoostTriggerTokens
	}
	if out.LengthTargetMin <= 0 {
		out.LengthTargetMin = def.LengthTargetMin
	}
	if out.LengthTargetMax <= out.LengthTargetMin {
		out.LengthTargetMax = def.LengthTargetMax
	}
	if out.CitationOverlapWindow < 0 {
		out.CitationOverlapWindow = def.CitationOverlapWindow
	}
	if out.QueryTimeout <= 0 {
		out.QueryTimeout = def.QueryTimeout
	}
	return out
}
