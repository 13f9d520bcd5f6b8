package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"contractiq/internal/llm"
	"contractiq/internal/model"
)

const pageMarkerPrefix = "--- Page "

// StructuredExtractor turns extracted contract text into a validated
// ContractData via the completion model. Documents above the token
// threshold are split into page-aligned chunks and the per-chunk
// results are merged.
type StructuredExtractor struct {
	completer      llm.Completer
	schema         *jsonschema.Schema
	encoding       *tiktoken.Tiktoken
	tokenThreshold int
}

func NewStructuredExtractor(completer llm.Completer, tokenThreshold int) (*StructuredExtractor, error) {
	schema, err := compileContractSchema()
	if err != nil {
		return nil, err
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	if tokenThreshold <= 0 {
		tokenThreshold = 12000
	}
	return &StructuredExtractor{
		completer:      completer,
		schema:         schema,
		encoding:       enc,
		tokenThreshold: tokenThreshold,
	}, nil
}

func (e *StructuredExtractor) ExtractStructured(ctx context.Context, text string) (*model.ContractData, error) {
	chunks := e.splitChunks(text)
	if len(chunks) > 1 {
		log.Info().Int("chunks", len(chunks)).Msg("Document exceeds token threshold, extracting per chunk")
	}

	results := make([]*model.ContractData, 0, len(chunks))
	for i, chunk := range chunks {
		raw, err := e.completer.Complete(ctx, buildExtractionPrompt(chunk))
		if err != nil {
			return nil, err
		}
		data, err := e.decodeResponse(raw)
		if err != nil {
			log.Error().Err(err).Int("chunk", i+1).Msg("Model response failed validation")
			return nil, err
		}
		results = append(results, data)
	}
	return mergeResults(results), nil
}

// decodeResponse validates the raw model output against the response
// schema before unmarshalling it into the typed struct.
func (e *StructuredExtractor) decodeResponse(raw string) (*model.ContractData, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, model.Errorf(model.KindMalformedResponse, "response is not valid JSON: %v", err)
	}
	if err := e.schema.Validate(doc); err != nil {
		return nil, model.Errorf(model.KindMalformedResponse, "response violates schema: %v", err)
	}

	var data model.ContractData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, model.Errorf(model.KindMalformedResponse, "decode response: %v", err)
	}
	return &data, nil
}

// TokenCount reports the cl100k_base token count of the text.
func (e *StructuredExtractor) TokenCount(text string) int {
	if e.encoding == nil {
		return 0
	}
	return len(e.encoding.Encode(text, nil, nil))
}

// splitChunks returns the text unchanged when it fits under the token
// threshold, otherwise splits it at page markers, packing consecutive
// pages into chunks. A single oversized page falls back to paragraph
// splits so no chunk exceeds the threshold by a whole page.
func (e *StructuredExtractor) splitChunks(text string) []string {
	if e.TokenCount(text) <= e.tokenThreshold {
		return []string{text}
	}

	segments := splitPages(text)
	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, seg := range segments {
		n := e.TokenCount(seg)
		if n > e.tokenThreshold {
			flush()
			chunks = append(chunks, e.splitParagraphs(seg)...)
			continue
		}
		if currentTokens+n > e.tokenThreshold {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(seg)
		currentTokens += n
	}
	flush()
	return chunks
}

func (e *StructuredExtractor) splitParagraphs(text string) []string {
	var chunks []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range strings.Split(text, "\n\n") {
		n := e.TokenCount(para)
		if currentTokens+n > e.tokenThreshold && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += n
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitPages cuts the text at the numbered page markers the adapter
// emits, keeping each marker with its page.
func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	var segments []string
	rest := text
	for {
		idx := strings.Index(rest[1:], "\n"+pageMarkerPrefix)
		if idx < 0 {
			segments = append(segments, strings.TrimSpace(rest))
			break
		}
		segments = append(segments, strings.TrimSpace(rest[:idx+1]))
		rest = rest[idx+2:]
	}
	out := segments[:0]
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
