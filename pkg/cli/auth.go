package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskplan/pkg/auth"
)

// AddAuthCommand adds the auth command.
func AddAuthCommand(root *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize taskplan to use Google Calendar",
		Long: `Run the OAuth flow in the browser and store a new token, replacing any
existing one. The client secret is read from calendar.credentials_file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := a.authOptions()
			if err := auth.Login(cmd.Context(), opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful, token saved to %s\n", opts.TokenFile)
			return nil
		},
	}
	root.AddCommand(cmd)
}
