package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coffersTech/probdash/internal/board"
	"github.com/coffersTech/probdash/internal/problem"
	"github.com/coffersTech/probdash/internal/storage"
)

type listOptions struct {
	member  string
	filter  string
	sort    string
	limit   int
	offline bool
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list [query...]",
		Short: "Print the problem list",
		Long: `Print the problem list, optionally narrowed by a search query.

Queries combine words and "quoted phrases" with AND, | (or), NOT, a leading -
and parentheses. Adjacent words are ANDed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.problems(cmd.Context(), opts.offline)
			if err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), list, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.member, "member", "m", "", "Member whose statuses are shown (default: first member)")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", board.FilterAll, "all, solved, unsolved or \"no submission\"")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", "", "difficulty_desc, difficulty_asc, teams_solved_desc or id_asc")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Print at most this many rows (0 for all)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Read the last saved snapshot instead of the remote sheet")
	return cmd
}

// problems returns the current list, from the snapshot when offline and
// from the remote sheet otherwise. A fresh fetch refreshes the snapshot.
func (a *app) problems(ctx context.Context, offline bool) ([]problem.Problem, error) {
	store := board.NewStore()
	if offline {
		if err := a.loadSnapshot(store); err != nil {
			return nil, err
		}
		return store.List(), nil
	}

	client, err := a.client()
	if err != nil {
		return nil, err
	}
	list, err := client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if writer, err := storage.NewSnapshotWriter(); err == nil {
		a.saveSnapshot(writer, list)
	}
	return list, nil
}

func printList(out io.Writer, list []problem.Problem, opts listOptions, query string) error {
	member := opts.member
	if member == "" {
		if members := problem.Members(list); len(members) > 0 {
			member = members[0]
		}
	}

	rows := board.Apply(list, board.View{
		Member: member,
		Filter: opts.filter,
		Sort:   opts.sort,
		Query:  query,
	})
	if opts.limit > 0 && len(rows) > opts.limit {
		rows = rows[:opts.limit]
	}

	s := board.Summarize(list, member)
	fmt.Fprintf(out, "%s, %s: %d solved, %d unsolved, %d no submission\n",
		s.Label, member, s.Solved, s.Unsolved, s.NoSubmission)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCONTEST\tDIFFICULTY\tTEAMS\tSTATUS")
	for _, p := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Contest,
			problem.DifficultyBadge(p.Difficulty).Label,
			p.TeamsSolved,
			problem.StatusOption(p.Status(member)),
		)
	}
	return w.Flush()
}
