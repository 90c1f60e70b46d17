package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/daryltucker/llamabench/internal/config"
	"github.com/daryltucker/llamabench/internal/engine"
)

var listEnginesCmd = &cobra.Command{
	Use:   "list-engines",
	Short: "List supported engines and their default endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ENGINE\tDEFAULT URL\tHEALTH\tSTREAMING")
		for _, k := range engine.Kinds {
			a, err := engine.AdapterFor(k)
			if err != nil {
				return err
			}
			req, err := a.BuildRequest("", "", "")
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", k, config.DefaultBaseURL(k), a.HealthPath(), req.Streaming)
		}
		return w.Flush()
	},
}

var listPresetsCmd = &cobra.Command{
	Use:   "list-presets",
	Short: "List workload presets and prompt styles",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRESET\tCONCURRENCY\tDURATION\tPROMPTS\tDESCRIPTION")
		for _, p := range config.Presets() {
			levels := make([]string, len(p.ConcurrencyLevels))
			for i, n := range p.ConcurrencyLevels {
				levels[i] = fmt.Sprint(n)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, strings.Join(levels, ","), p.Duration, p.PromptStyle, p.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nPrompt styles: %s\n", strings.Join(config.PromptStyles(), ", "))
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List supported models and the names each engine serves them under",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tNAME\tSIZE\tCONTEXT\tMEMORY\tOLLAMA\tHUGGINGFACE")
		for _, m := range config.Models() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%gGB\t%s\t%s\n",
				m.ID, m.Name, m.Size, m.ContextLength, m.RecommendedMemoryGB, m.OllamaName, m.HFRepo)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listEnginesCmd)
	rootCmd.AddCommand(listPresetsCmd)
	rootCmd.AddCommand(listModelsCmd)
}
