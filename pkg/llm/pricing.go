package llm

// pricePerThousand is USD cost per 1,000 tokens, prompt and completion
// priced separately. Unrecognized models cost nothing rather than
// blocking the response on a missing price entry.
type pricePerThousand struct {
	prompt     float64
	completion float64
}

var priceTable = map[string]pricePerThousand{
	"gpt-4.1-nano": {prompt: 0.0001, completion: 0.0004},
	"gpt-4.1-mini": {prompt: 0.0004, completion: 0.0016},
	"gpt-4.1":      {prompt: 0.002, completion: 0.008},
}

// EstimateCost returns a cost estimate in USD for usage against modelID.
// It never errors: an unknown model simply estimates zero cost.
func EstimateCost(modelID string, usage Usage) float64 {
	price, ok := priceTable[modelID]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)/1000*price.prompt + float64(usage.CompletionTokens)/1000*price.completion
}
