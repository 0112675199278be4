package problem

import (
	"sort"
	"strings"
)

// statusSuffix marks the per-member status columns, e.g. "Dugar status".
const statusSuffix = " status"

// Problem is one row of the shared problem sheet.
type Problem struct {
	ID          int64             `json:"id"`
	RowID       string            `json:"row_id,omitempty"`
	Contest     string            `json:"contest"`
	Name        string            `json:"name"`
	Link        string            `json:"link,omitempty"`
	Tags        string            `json:"tags"`
	Difficulty  string            `json:"difficulty"`
	TeamsSolved string            `json:"teams_solved"`
	Statuses    map[string]string `json:"statuses"` // member -> status code
	Fields      map[string]string `json:"fields,omitempty"`
}

// FromFields builds a Problem from the raw sheet columns of one row.
func FromFields(fields map[string]string) Problem {
	p := Problem{
		RowID:       fields["_rowId"],
		Contest:     fields["Contest"],
		Name:        firstNonEmpty(fields, "Name", "name"),
		Link:        firstNonEmpty(fields, "Name_link", "name_link", "Link", "link"),
		Tags:        fields["Tags"],
		Difficulty:  fields["Difficulty"],
		TeamsSolved: fields["Teams solved"],
		Statuses:    make(map[string]string),
		Fields:      fields,
	}
	if id, ok := ParseFloatPrefix(fields["id"]); ok {
		p.ID = int64(id)
	}

	for key, value := range fields {
		if member, ok := strings.CutSuffix(key, statusSuffix); ok && member != "" {
			p.Statuses[member] = value
		}
	}
	return p
}

func firstNonEmpty(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

// StatusColumn returns the sheet column holding member's status.
func StatusColumn(member string) string {
	return member + statusSuffix
}

// Status returns member's status code ("" when there is no submission).
func (p Problem) Status(member string) string {
	return p.Statuses[member]
}

// SetStatus records a status code for member, keeping Fields in sync.
func (p *Problem) SetStatus(member, code string) {
	if p.Statuses == nil {
		p.Statuses = make(map[string]string)
	}
	p.Statuses[member] = code
	if p.Fields != nil {
		p.Fields[StatusColumn(member)] = code
	}
}

// Clone returns a deep copy of p.
func (p Problem) Clone() Problem {
	c := p
	c.Statuses = cloneMap(p.Statuses)
	c.Fields = cloneMap(p.Fields)
	return c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Haystack is the lowercase searchable text of the row: name, tags,
// contest and row id separated by spaces.
func (p Problem) Haystack() string {
	return strings.ToLower(p.Name + " " + p.Tags + " " + p.Contest + " " + p.RowID)
}

// Matches reports whether the row id or the numeric id equals id.
func (p Problem) Matches(id int64) bool {
	if p.ID == id {
		return true
	}
	rowID, ok := ParseFloatPrefix(p.RowID)
	return ok && int64(rowID) == id
}

// Members returns the sorted set of member names with a status column.
func Members(list []Problem) []string {
	seen := make(map[string]struct{})
	for _, p := range list {
		for m := range p.Statuses {
			seen[m] = struct{}{}
		}
	}
	members := make([]string, 0, len(seen))
	for m := range seen {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}
