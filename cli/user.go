package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// NewHashPasswordCmd creates the "hash-password" subcommand. The printed hash
// goes into the users section of icarus.yaml in place of a plaintext password.
func NewHashPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for use in the config's user directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runHashPassword,
	}

	cmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")

	return cmd
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	cost, _ := cmd.Flags().GetInt("cost")

	hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
	if err != nil {
		return exitError(exitRuntime, "hashing password: %v", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
