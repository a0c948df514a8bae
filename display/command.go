package display

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// OutputEnv selects the default output format ("json" or "text") when no
// --json flag is given
const OutputEnv = "NOVO_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on its
// flags and NOVO_OUTPUT
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return envWantsJSON()
	}

	// A local --json flag wins, even when explicitly false
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}

	if f := cmd.Root().PersistentFlags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Root().PersistentFlags().GetBool("json")
		return v
	}

	return envWantsJSON()
}

// Output writes v as JSON when the command asks for it, otherwise calls text
func Output(cmd *cobra.Command, v interface{}, text func() error) error {
	if ShouldOutputJSON(cmd) {
		return WriteJSON(cmd.OutOrStdout(), v)
	}
	return text()
}

func envWantsJSON() bool {
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}
