package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/codepair/internal/config"
	"github.com/Iron-Ham/codepair/internal/llm"
)

// commandRunner is used by model discovery; nil runs the real binary.
var commandRunner llm.CommandRunner

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List locally installed Ollama models",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the same JSON the API returns")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	d := llm.NewDiscoverer(cfg.Providers.Ollama.Binary, commandRunner).Discover(cmd.Context())

	out := cmd.OutOrStdout()
	if modelsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	if !d.Available {
		fmt.Fprintf(out, "Ollama is not available (tried %q)\n", cfg.Providers.Ollama.Binary)
		return nil
	}
	if len(d.Models) == 0 {
		fmt.Fprintln(out, "No models installed")
		return nil
	}
	for _, m := range d.Models {
		fmt.Fprintln(out, m)
	}
	return nil
}
