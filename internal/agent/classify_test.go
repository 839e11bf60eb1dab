package agent

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Kind
	}{
		{"plain", "Hello!", KindText},
		{"empty", "", KindText},
		{"clarify", "Could you clarify the meeting date?", KindQuestion},
		{"question upper", "One more QUESTION for you", KindQuestion},
		{"no keyword", "What date did the meeting occur?", KindText},
		{"draft", "**HCP:** Dr. Lee\n**Date:** 01-06-2024\n**Topics:** Drug X", KindDraft},
		{"draft wins over question", "**HCP:** Dr. Lee\n**Date:** N/A\n**Topics:** a question on dosing", KindDraft},
		{"partial markers", "**HCP:** Dr. Lee\n**Date:** 01-06-2024", KindText},
		{"markers are case sensitive", "**hcp:** x **date:** y **topics:** z", KindText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.content); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.content, got, tc.want)
			}
			if again := Classify(tc.content); again != tc.want {
				t.Fatalf("Classify is not deterministic for %q", tc.content)
			}
		})
	}
}

func TestStateMessagesIsACopy(t *testing.T) {
	s := NewState(nil)
	if s.Last() != nil {
		t.Fatalf("expected nil last message on empty state")
	}
	s.Append(nil)
	msgs := s.Messages()
	msgs = append(msgs, nil)
	if s.Len() != 1 || len(msgs) != 2 {
		t.Fatalf("state leaked through Messages: len=%d", s.Len())
	}
}
