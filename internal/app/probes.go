package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chatta-voice/chatta-setup/internal/output"
	"github.com/chatta-voice/chatta-setup/internal/probe"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List the probes the wizard runs",
	Long: `List every probe in the effective catalog (built-in, or the probes list from
the config file) with its kind, target and whether it is required.
Nothing is probed.`,
	Args: cobra.NoArgs,
	RunE: runProbes,
}

func init() {
	rootCmd.AddCommand(probesCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	reg, err := probe.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("building probe catalog: %w", err)
	}

	if flagJSON {
		return writeProbesJSON(cmd.OutOrStdout(), reg.List())
	}
	renderProbes(cmd.OutOrStdout(), reg)
	return nil
}

func writeProbesJSON(w io.Writer, probes []probe.Probe) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(probes)
}

func renderProbes(w io.Writer, reg *probe.Registry) {
	fmt.Fprintln(w, output.Section("Probes"))
	fmt.Fprintln(w)

	tbl := output.NewTable("Name", "Kind", "Target", "Required", "Category")
	required := 0
	for _, p := range reg.List() {
		req := output.StyleMuted.Render("no")
		if p.Required {
			req = output.StyleBold.Render("yes")
			required++
		}
		target := p.Target
		if p.MinVersion != "" {
			target = fmt.Sprintf("%s (%s)", p.Target, p.MinVersion)
		}
		tbl.AddRow(p.Name, string(p.Kind), target, req, string(p.Category))
	}
	tbl.Fprint(w)

	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s\n\n", output.StyleMuted.Render(fmt.Sprintf("%d probes, %d required", reg.Len(), required)))
}
