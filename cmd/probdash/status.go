package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/coffersTech/probdash/internal/problem"
)

func newSetStatusCmd(a *app) *cobra.Command {
	var member string

	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Save a member's status for one problem",
		Long:  `Save a member's status for one problem. Status is one of: no submission, tl, re, wa, ac, ni.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Errorf("invalid problem id %q", args[0])
			}
			code, err := problem.NormalizeStatus(args[1])
			if err != nil {
				return err
			}
			if member == "" {
				member = a.settings.DefaultMember
			}
			if member == "" {
				return errors.New("--member is required")
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.UpdateStatus(cmd.Context(), id, member, code); err != nil {
				return errors.Wrap(err, "Save failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s = %s\n", id, member, problem.StatusOption(code))
			return nil
		},
	}

	cmd.Flags().StringVarP(&member, "member", "m", "", "Member whose status is saved")
	return cmd
}
