package history

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding covers model names tiktoken does not know, so window
// budgets stay meaningful for provider aliases and fine-tune names.
const fallbackEncoding = "cl100k_base"

// NewTikTokenEstimator returns a TokenEstimator counting tokens the way the
// named model's tokenizer would. Unknown model names fall back to a generic
// encoding rather than failing; an error is only returned when no encoding
// can be loaded at all.
func NewTikTokenEstimator(model string) (TokenEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
