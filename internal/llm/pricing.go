package llm

// modelPricing is USD per million tokens for input/output.
type modelPricing struct {
	InputUSD  float64
	OutputUSD float64
}

// pricingTable maps model name prefixes to pricing. Local models cost
// nothing to call but are priced at a nominal rate so budget accounting
// still exercises the gates.
var pricingTable = map[string]modelPricing{
	"llama3.1:8b":  {InputUSD: 0.05, OutputUSD: 0.08},
	"llama3.1:70b": {InputUSD: 0.59, OutputUSD: 0.79},
	"gpt-oss:20b":  {InputUSD: 0.10, OutputUSD: 0.30},
	"mistral":      {InputUSD: 0.10, OutputUSD: 0.25},
}

var defaultPricing = modelPricing{InputUSD: 0.10, OutputUSD: 0.30}

// pricingFor returns the pricing entry for a model, falling back to a
// conservative default for unknown models.
func pricingFor(model string) modelPricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	return defaultPricing
}

// estimateTokens approximates a token count from text length when the
// provider returns no usage metadata. Rough estimate: 1 token ≈ 4 characters.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

// estimateCostUSD prices a call from its input and output token counts.
func estimateCostUSD(model string, inputTokens, outputTokens int) float64 {
	p := pricingFor(model)
	return float64(inputTokens)/1e6*p.InputUSD + float64(outputTokens)/1e6*p.OutputUSD
}
