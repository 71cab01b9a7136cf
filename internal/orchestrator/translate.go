package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/llm"
)

// OpTranslate is the operation name for translation.
const OpTranslate = "translate"

// MaxTranslateLength bounds translation input, in bytes.
const MaxTranslateLength = 16 * 1024

const autoLanguage = "auto"

// TranslateInput is text to translate. SourceLanguage defaults to "auto".
type TranslateInput struct {
	Content        string `json:"content"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language,omitempty"`
}

// Translation is the structured translation payload.
type Translation struct {
	TranslatedText string `json:"translated_text"`
	Note           string `json:"note,omitempty"`
}

func (in TranslateInput) normalized() TranslateInput {
	out := TranslateInput{
		Content:        in.Content,
		TargetLanguage: cache.NormalizeKey(in.TargetLanguage),
		SourceLanguage: cache.NormalizeKey(in.SourceLanguage),
	}
	if out.SourceLanguage == "" {
		out.SourceLanguage = autoLanguage
	}
	return out
}

func (in TranslateInput) validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return Validationf("content is required")
	}
	if len(in.Content) > MaxTranslateLength {
		return Validationf("content exceeds %d bytes", MaxTranslateLength)
	}
	if in.TargetLanguage == "" {
		return Validationf("target_language is required")
	}
	if in.TargetLanguage == autoLanguage {
		return Validationf("target_language cannot be %q", autoLanguage)
	}
	return nil
}

func translateFallback(content string) func() Payload {
	return func() Payload {
		t := Translation{
			TranslatedText: content,
			Note:           "Translation is unavailable right now; the original text is shown.",
		}
		data, _ := json.Marshal(t)
		return Payload{Data: data, Text: content}
	}
}

// Translate renders content in the target language.
func (o *Orchestrator) Translate(ctx context.Context, in TranslateInput) Result {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return o.Reject(ctx, OpTranslate, err)
	}

	fp, err := cache.Fingerprint(OpTranslate, map[string]string{
		"from":    in.SourceLanguage,
		"to":      in.TargetLanguage,
		"content": cache.HashText(cache.NormalizeText(in.Content)),
	})
	if err != nil {
		return o.Reject(ctx, OpTranslate, Validationf("unencodable input: %v", err))
	}

	system, user := translatePrompt(in)
	return o.Execute(ctx, Call{
		Operation:   OpTranslate,
		Fingerprint: fp,
		Request: llm.Request{
			System:   system,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: user}},
		},
		Schema:   translateSchema,
		Fallback: translateFallback(in.Content),
	})
}
