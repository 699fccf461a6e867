package moderation

import (
	"reflect"
	"testing"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		n       int
		verdict Verdict
		indices []int
	}{
		{"zero approves all", "0", 5, VerdictApproveAll, nil},
		{"all english", "all", 5, VerdictApproveAll, nil},
		{"all russian", "все", 5, VerdictApproveAll, nil},
		{"all uppercase russian", "ВСЕ", 5, VerdictApproveAll, nil},
		{"cancel english", "cancel", 5, VerdictRejectAll, nil},
		{"cancel russian", "отмена", 5, VerdictRejectAll, nil},
		{"cancel mixed case", "Cancel", 5, VerdictRejectAll, nil},
		{"space separated", "1 3", 5, VerdictExclude, []int{1, 3}},
		{"comma separated", "2,4", 5, VerdictExclude, []int{2, 4}},
		{"comma with space", "1, 2", 5, VerdictExclude, []int{1, 2}},
		{"single index", "5", 5, VerdictExclude, []int{5}},
		{"duplicate indices collapsed", "2 2 3", 5, VerdictExclude, []int{2, 3}},
		{"surrounding whitespace", "  1 2  ", 5, VerdictExclude, []int{1, 2}},
		{"index above range", "6", 5, VerdictInvalid, nil},
		{"index zero in list", "0 1", 5, VerdictInvalid, nil},
		{"negative index", "-1", 5, VerdictInvalid, nil},
		{"mixed valid and garbage", "1 abc", 5, VerdictInvalid, nil},
		{"free text", "опубликуй только первую", 5, VerdictInvalid, nil},
		{"empty", "", 5, VerdictInvalid, nil},
		{"whitespace only", "   ", 5, VerdictInvalid, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, indices := ParseReply(tt.text, tt.n)
			if verdict != tt.verdict {
				t.Errorf("ParseReply(%q) verdict = %d, want %d", tt.text, verdict, tt.verdict)
			}

			if !reflect.DeepEqual(indices, tt.indices) {
				t.Errorf("ParseReply(%q) indices = %v, want %v", tt.text, indices, tt.indices)
			}
		})
	}
}
