package domain

import "strings"

// ReasoningMarker closes the model's reasoning segment in a raw answer.
const ReasoningMarker = "</think>"

// AnswerRecord is an answer as stored by the contract.
type AnswerRecord struct {
	PromptID uint64
	Answer   string
}

// Answer is the answer shown for one prompt. Answer is empty while the
// prompt is still unanswered.
type Answer struct {
	PromptID uint64
	Answer   string
}

// PromptsAnswers is the aligned conversation of one account.
type PromptsAnswers struct {
	Prompts []string
	Answers []Answer
}

// Align pairs every prompt with its answer. answers must be sorted by
// PromptID without duplicates; prompts without a record get an empty answer.
func Align(prompts []string, answers []AnswerRecord) []Answer {
	out := make([]Answer, len(prompts))
	j := 0
	for i := range prompts {
		id := uint64(i)
		out[i] = Answer{PromptID: id}
		if j < len(answers) && answers[j].PromptID == id {
			out[i].Answer = StripReasoning(answers[j].Answer)
			j++
		}
	}
	return out
}

// StripReasoning returns the text after the first reasoning marker. A raw
// answer without the marker yields "".
func StripReasoning(raw string) string {
	_, after, found := strings.Cut(raw, ReasoningMarker)
	if !found {
		return ""
	}
	return after
}
