package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProfilesCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage profiles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := g.app(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				active := a.Profiles.Active(cmd.Context())
				for _, name := range a.Profiles.List(cmd.Context()) {
					marker := " "
					if name == active {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := g.app(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				res, err := a.Profiles.Create(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s\n", args[0])
				printNotice(cmd, res)
				return nil
			},
		},
		&cobra.Command{
			Use:   "use <name>",
			Short: "Switch the active profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := g.app(cmd)
				if err != nil {
					return err
				}
				defer a.Close()
				if err := a.Profiles.SetActive(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
