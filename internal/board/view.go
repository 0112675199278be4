package board

import (
	"sort"
	"strings"

	"github.com/coffersTech/probdash/internal/pkg/logging"
	"github.com/coffersTech/probdash/internal/pkg/searchql"
	"github.com/coffersTech/probdash/internal/problem"
)

var log = logging.For("board")

// parseQuery is replaced in tests.
var parseQuery = searchql.Parse

// Member status filters.
const (
	FilterAll          = "all"
	FilterSolved       = "solved"
	FilterUnsolved     = "unsolved"
	FilterNoSubmission = "no submission"
)

// Sort modes. Any other value keeps source order.
const (
	SortDifficultyDesc  = "difficulty_desc"
	SortDifficultyAsc   = "difficulty_asc"
	SortTeamsSolvedDesc = "teams_solved_desc"
	SortIDAsc           = "id_asc"
)

// View describes which rows to show and in what order.
type View struct {
	Member string `json:"member"`
	Filter string `json:"filter"`
	Sort   string `json:"sort"`
	Query  string `json:"q"`
}

// Apply returns the rows of list selected by v: search first, then the
// member status filter, then a stable sort. list is not modified.
func Apply(list []problem.Problem, v View) []problem.Problem {
	data := make([]problem.Problem, len(list))
	copy(data, list)

	if q := strings.ToLower(strings.TrimSpace(v.Query)); q != "" {
		data = filter(data, searchMatcher(q))
	}

	switch v.Filter {
	case FilterSolved:
		data = filter(data, func(p problem.Problem) bool { return p.Status(v.Member) == "AC" })
	case FilterUnsolved:
		data = filter(data, func(p problem.Problem) bool { return p.Status(v.Member) != "AC" })
	case FilterNoSubmission:
		data = filter(data, func(p problem.Problem) bool {
			code, ok := p.Statuses[v.Member]
			return ok && code == ""
		})
	}

	sortRows(data, v.Sort)
	return data
}

// searchMatcher compiles q. Should the parser fault, the query degrades to
// a plain substring match.
func searchMatcher(q string) func(problem.Problem) bool {
	node, ok := safeParse(q)
	if !ok || node == nil {
		return func(p problem.Problem) bool {
			return strings.Contains(p.Haystack(), q)
		}
	}
	return func(p problem.Problem) bool {
		return searchql.Eval(node, p.Haystack())
	}
}

func safeParse(q string) (node searchql.Node, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("query", q).Msg("parse failed, falling back to substring match")
			node, ok = nil, false
		}
	}()
	return parseQuery(q), true
}

func filter(data []problem.Problem, keep func(problem.Problem) bool) []problem.Problem {
	out := data[:0]
	for _, p := range data {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func sortRows(data []problem.Problem, mode string) {
	var less func(a, b problem.Problem) bool
	switch mode {
	case SortDifficultyDesc:
		less = func(a, b problem.Problem) bool { return number(a.Difficulty) > number(b.Difficulty) }
	case SortDifficultyAsc:
		less = func(a, b problem.Problem) bool { return number(a.Difficulty) < number(b.Difficulty) }
	case SortTeamsSolvedDesc:
		less = func(a, b problem.Problem) bool { return number(a.TeamsSolved) > number(b.TeamsSolved) }
	case SortIDAsc:
		less = func(a, b problem.Problem) bool { return a.ID < b.ID }
	default:
		return
	}
	sort.SliceStable(data, func(i, j int) bool { return less(data[i], data[j]) })
}

// number treats missing or non-numeric values as 0.
func number(s string) float64 {
	f, _ := problem.ParseFloatPrefix(s)
	return f
}
