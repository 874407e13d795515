package domain

import (
	"reflect"
	"testing"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		name    string
		prompts []string
		answers []AnswerRecord
		want    []Answer
	}{
		{
			name:    "sparse_answers",
			prompts: []string{"p0", "p1", "p2"},
			answers: []AnswerRecord{{PromptID: 1, Answer: "<think>x</think>ok"}},
			want:    []Answer{{0, ""}, {1, "ok"}, {2, ""}},
		},
		{
			name:    "missing_marker_is_empty",
			prompts: []string{"p0"},
			answers: []AnswerRecord{{PromptID: 0, Answer: "no reasoning block"}},
			want:    []Answer{{0, ""}},
		},
		{
			name:    "all_answered",
			prompts: []string{"a", "b"},
			answers: []AnswerRecord{
				{PromptID: 0, Answer: "</think>first"},
				{PromptID: 1, Answer: "<think>plan</think> second"},
			},
			want: []Answer{{0, "first"}, {1, " second"}},
		},
		{
			name:    "only_first_marker_stripped",
			prompts: []string{"a"},
			answers: []AnswerRecord{{PromptID: 0, Answer: "<think>a</think>b</think>c"}},
			want:    []Answer{{0, "b</think>c"}},
		},
		{
			name:    "answers_beyond_prompts_ignored",
			prompts: []string{"a"},
			answers: []AnswerRecord{{PromptID: 3, Answer: "</think>late"}},
			want:    []Answer{{0, ""}},
		},
		{
			name:    "no_prompts",
			prompts: nil,
			answers: []AnswerRecord{{PromptID: 0, Answer: "</think>x"}},
			want:    []Answer{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(tt.prompts, tt.answers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
