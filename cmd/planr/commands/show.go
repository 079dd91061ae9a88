package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openplan/openplan/pkg/domainfile"
	"github.com/openplan/openplan/pkg/planner"
)

func newShowCommand() *cobra.Command {
	var (
		bindingsPath string
		showBits     bool
		showMutex    bool
	)

	cmd := &cobra.Command{
		Use:   "show <domain-file>",
		Short: "Show a compiled domain",
		Long: `Compile a domain description and print its states, constraints,
and actions. With --bits the bitmask of every action is included; with
--mutex the pairwise mutual-exclusion table is included.`,
		Example: `  planr show errands.dom
  planr show logistics.dom --bindings fleet.txt --bits --mutex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := compileDomainFile(args[0], bindingsPath)
			if err != nil {
				return err
			}
			fmt.Print(domain.Describe(showBits, showMutex))
			return nil
		},
	}

	cmd.Flags().StringVar(&bindingsPath, "bindings", "", "bindings file for parameterized domains")
	cmd.Flags().BoolVar(&showBits, "bits", false, "include action bitmasks")
	cmd.Flags().BoolVar(&showMutex, "mutex", false, "include the mutual-exclusion table")

	return cmd
}

// compileDomainFile parses, substitutes, and compiles a domain description.
func compileDomainFile(domainPath, bindingsPath string) (*planner.Domain, error) {
	doc, err := domainfile.ParseFile(domainPath)
	if err != nil {
		return nil, err
	}

	bindings := map[string][]string{}
	if bindingsPath != "" {
		data, err := readFile(bindingsPath)
		if err != nil {
			return nil, err
		}
		bindings, err = domainfile.ParseBindings(data)
		if err != nil {
			return nil, err
		}
	}

	def, err := doc.Substitute(bindings)
	if err != nil {
		return nil, err
	}
	return planner.Compile(def)
}
