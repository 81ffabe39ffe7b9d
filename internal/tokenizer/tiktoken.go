package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

func init() {
	register(NameCL100K, bpeFactory(NameCL100K))
	register(NameO200K, bpeFactory(NameO200K))
}

// bpeFactory returns a factory that loads the named BPE encoding on first
// call. Each call to NewTokenizer reloads the encoding rather than sharing a
// cached instance: tiktoken-go's own TIKTOKEN_CACHE_DIR already amortizes the
// expensive part (fetching/parsing the merge table from disk).
func bpeFactory(encodingName string) factory {
	return func() (Tokenizer, error) {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("loading BPE encoding %q: %w", encodingName, err)
		}
		return &bpeTokenizer{name: encodingName, enc: enc}, nil
	}
}

// bpeTokenizer counts exact BPE tokens via pkoukk/tiktoken-go. Encode does
// not mutate the underlying Tiktoken, so a bpeTokenizer can be shared freely
// across goroutines once constructed.
type bpeTokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

func (t *bpeTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *bpeTokenizer) Name() string {
	return t.name
}
