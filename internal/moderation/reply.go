package moderation

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Verdict classifies a moderator reply.
type Verdict int

const (
	VerdictInvalid Verdict = iota
	VerdictApproveAll
	VerdictRejectAll
	VerdictExclude
)

var foldCaser = cases.Fold()

// ParseReply interprets a moderator reply against a proposal of n items.
//
// Grammar (English and Russian keywords both accepted):
//   - "0", "all", "все"        -> approve everything
//   - "cancel", "отмена"       -> reject everything
//   - "1 3" / "2,4" / "1, 2"   -> exclude the listed 1-based indices
//
// Anything else, including indices out of 1..n, is invalid; the caller
// sends a hint and keeps waiting.
func ParseReply(text string, n int) (Verdict, []int) {
	folded := foldCaser.String(strings.TrimSpace(text))

	switch folded {
	case "0", "all", "все":
		return VerdictApproveAll, nil
	case "cancel", "отмена":
		return VerdictRejectAll, nil
	case "":
		return VerdictInvalid, nil
	}

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})

	if len(fields) == 0 {
		return VerdictInvalid, nil
	}

	seen := make(map[int]bool, len(fields))
	indices := make([]int, 0, len(fields))

	for _, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil || idx < 1 || idx > n {
			return VerdictInvalid, nil
		}

		if !seen[idx] {
			seen[idx] = true
			indices = append(indices, idx)
		}
	}

	return VerdictExclude, indices
}
