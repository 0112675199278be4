package board

import (
	"fmt"

	"github.com/coffersTech/probdash/internal/problem"
)

// Summary holds list-level counts for one member.
type Summary struct {
	Label        string `json:"label"` // e.g. "42 problems"
	Total        int    `json:"total"`
	Solved       int    `json:"solved"`
	Unsolved     int    `json:"unsolved"`
	NoSubmission int    `json:"no_submission"`
}

// Summarize counts list by member's status. Unsolved includes rows with no
// submission, the same way the unsolved filter does.
func Summarize(list []problem.Problem, member string) Summary {
	s := Summary{Total: len(list)}
	for _, p := range list {
		switch p.Status(member) {
		case "AC":
			s.Solved++
		case "":
			s.NoSubmission++
			s.Unsolved++
		default:
			s.Unsolved++
		}
	}
	s.Label = fmt.Sprintf("%d problems", s.Total)
	return s
}
