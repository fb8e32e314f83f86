// Package prompt builds the fixed instruction templates the tutor speaks
// through and extracts the model's reply from its raw completion.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"tutor-llm/internal/generate"
)

// Response keys marking where each template's reply begins in the raw
// model output.
const (
	KeyAnswer   = "###answer"
	KeyHint     = "###hint"
	KeyFeedback = "###feedback"
	KeyVerdict  = "###verdict"
)

const template = `
###guideline: Never mention that you were given a context or instructions. Respond naturally as if you are directly addressing the user. Also remember that you are not responding to anyone except the user.
###context:%s
###instruction:%s
###length: short
###question:%s
%s:
`

const answerInstruction = `
Answer the question using only the given information.
- If the correct answer is present in the context, provide it concisely.
- If the correct answer is NOT in the context, respond with exactly: 'I am not aware about it.'
- Do NOT mention the context or refer to external sources.
`

const hintInstruction = `
Provide a hint to help answer the question without giving away the full answer.
- The hint should be useful but should not explicitly state the answer.
- Do NOT mention that you are providing a hint.
- Do NOT refer to any context or external sources.
`

const feedbackInstruction = `
Evaluate the user's answer based on the correct answer found in the context.
- Identify any missing or incorrect points in the user's answer.
- Provide a clear and constructive explanation of these points under the section '###feedback'.
- Do NOT mention that you are referring to a provided context or external text.
- Respond naturally as if you are directly addressing the user.
`

const verdictInstruction = `
Based on the correct answer found in the context and the provided feedback, determine if the user's answer conveys the same meaning.
- If the user's answer is correct, respond with 'Correct'.
- If the user's answer is incorrect, respond with 'Incorrect'.
- Do NOT provide additional explanations.
`

// Respond builds the common template around context, instruction and
// question, generates, and returns the text after the final responseKey
// marker.
func Respond(ctx context.Context, backend generate.Backend, docContext, instruction, question, responseKey string) (string, error) {
	built := fmt.Sprintf(template, docContext, instruction, question, responseKey)
	raw, err := backend.Generate(ctx, built)
	if err != nil {
		return "", err
	}
	return Extract(raw, responseKey), nil
}

// Extract returns everything after the LAST occurrence of "<key>:" in raw,
// whitespace trimmed. If the marker never appears, the whole trimmed text
// is returned as a degraded fallback.
func Extract(raw, key string) string {
	marker := key + ":"
	if idx := strings.LastIndex(raw, marker); idx >= 0 {
		return strings.TrimSpace(raw[idx+len(marker):])
	}
	return strings.TrimSpace(raw)
}

// Answer answers the question from the given context only.
func Answer(ctx context.Context, backend generate.Backend, docContext, question string) (string, error) {
	return Respond(ctx, backend, docContext, answerInstruction, question, KeyAnswer)
}

// Hint nudges the user toward the answer without revealing it.
func Hint(ctx context.Context, backend generate.Backend, docContext, question string) (string, error) {
	return Respond(ctx, backend, docContext, hintInstruction, question, KeyHint)
}

// Feedback critiques the user's answer against the context.
func Feedback(ctx context.Context, backend generate.Backend, docContext, question, userAnswer string) (string, error) {
	q := fmt.Sprintf("%s\n###user_answer:%s", question, userAnswer)
	return Respond(ctx, backend, docContext, feedbackInstruction, q, KeyFeedback)
}

// Verdict grades the user's answer as Correct or Incorrect. Context,
// instruction and question go through Respond in the same positions as
// every other builder.
func Verdict(ctx context.Context, backend generate.Backend, docContext, question, userAnswer, feedback string) (string, error) {
	q := fmt.Sprintf("%s\n###user_answer:%s\n###feedback:%s", question, userAnswer, feedback)
	return Respond(ctx, backend, docContext, verdictInstruction, q, KeyVerdict)
}
