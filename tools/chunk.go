package tools

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer used to size page chunks.
const DefaultEncoding = "cl100k_base"

// Tokenizer converts text to tokens and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

var (
	defaultTokenizerOnce sync.Once
	defaultTokenizer     Tokenizer
	defaultTokenizerErr  error
)

// DefaultTokenizer loads the cl100k_base encoding once. The first call
// may download the BPE ranks.
func DefaultTokenizer() (Tokenizer, error) {
	defaultTokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			defaultTokenizerErr = fmt.Errorf("load %s encoding: %w", DefaultEncoding, err)
			return
		}
		defaultTokenizer = tiktokenTokenizer{enc: enc}
	})
	return defaultTokenizer, defaultTokenizerErr
}

// ChunkText splits text into consecutive pieces of at most size tokens.
// Text of L tokens yields ceil(L/size) chunks in original order, or a few
// more when a cut is moved back so that no chunk ends inside a UTF-8
// sequence. The chunks concatenate to the decoded text.
func ChunkText(tok Tokenizer, text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	tokens := tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); {
		end := runeBoundary(tok, tokens, start, min(start+size, len(tokens)))
		chunks = append(chunks, tok.Decode(tokens[start:end]))
		start = end
	}
	return chunks
}

// runeBoundary moves end back until tokens[start:end] decodes to valid
// UTF-8. It returns end unchanged when no shorter cut is valid.
func runeBoundary(tok Tokenizer, tokens []int, start, end int) int {
	if end == len(tokens) {
		return end
	}
	for cut := end; cut > start; cut-- {
		if utf8.ValidString(tok.Decode(tokens[start:cut])) {
			return cut
		}
	}
	return end
}
