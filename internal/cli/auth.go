package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fbettag/sgpt/internal/authstore"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect or manage the stored API key",
	}
	cmd.AddCommand(newAuthStatusCommand(), newAuthResetCommand())
	return cmd
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := authstore.New("", nil)
			if err != nil {
				return err
			}
			st, err := store.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !st.Present {
				fmt.Fprintf(out, "No API key stored at %s. The next request will ask for one.\n", st.Path)
				return nil
			}
			fmt.Fprintf(out, "API key %s (%s)\n", st.Masked, st.Path)
			return nil
		},
	}
}

func newAuthResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := authstore.New("", nil)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", store.Path())
			return nil
		},
	}
}
