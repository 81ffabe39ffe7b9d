package tokenizer

func init() {
	register(NameNone, func() (Tokenizer, error) { return charCountTokenizer{}, nil })
}

// charCountTokenizer approximates token count from text length alone,
// without loading any BPE merge table. The ~4-chars-per-token ratio is the
// commonly cited average for English prose; it is an estimate, not a bound.
type charCountTokenizer struct{}

func (charCountTokenizer) Count(text string) int {
	return len(text) / 4
}

func (charCountTokenizer) Name() string {
	return NameNone
}
