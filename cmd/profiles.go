package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the site profiles chatexport knows",
	Long: `Profiles lists the built-in site profiles and any loaded with --profiles.

Examples:
  chatexport profiles
  chatexport profiles --profiles ./my-sites.yaml`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	for _, p := range reg.All() {
		fmt.Fprintf(os.Stdout, "%s %s\n", successStyle.Render(p.Name), mutedStyle.Render("("+p.Source+")"))
		fmt.Fprintf(os.Stdout, "  hosts:     %s\n", strings.Join(p.Hosts, ", "))
		fmt.Fprintf(os.Stdout, "  turns:     %s\n", strings.Join(p.Turns, " | "))
		fmt.Fprintf(os.Stdout, "  assistant: %s\n", p.AssistantLabel)
		fmt.Fprintf(os.Stdout, "  scroll:    max %d steps, %s per step\n", p.Scroll.MaxLoops, p.Scroll.StepDelay)
	}
	return nil
}
