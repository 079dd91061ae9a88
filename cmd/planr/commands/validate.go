package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openplan/openplan/pkg/domainfile"
	"github.com/openplan/openplan/pkg/planner"
)

func newValidateCommand() *cobra.Command {
	var (
		bindingsPath string
		problemPath  string
	)

	cmd := &cobra.Command{
		Use:   "validate <domain-file>",
		Short: "Validate a domain description",
		Long: `Parse and compile a domain description, reporting any problems.

This command checks:
  - description syntax (block structure, where clauses)
  - variable bindings cover every declared type
  - state and action name resolution
  - constraint compatibility under propagation

With --problem the start and goal of a problem file are checked against
the compiled domain as well.`,
		Example: `  planr validate errands.dom
  planr validate logistics.dom --bindings fleet.txt --problem delivery.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := compileDomainFile(args[0], bindingsPath)
			if err != nil {
				return fmt.Errorf("%s: %s", classifyDomainError(err), err)
			}
			fmt.Printf("Domain OK: %d states, %d actions, %d constraints\n",
				domain.Width(), len(domain.Actions), len(domain.Constraints))

			if problemPath == "" {
				return nil
			}

			pf, err := domainfile.LoadProblemFile(problemPath)
			if err != nil {
				return err
			}
			if _, err := domain.Problem(pf.StartSpecs(), pf.Goal); err != nil {
				return fmt.Errorf("%s: %s", classifyDomainError(err), err)
			}
			fmt.Println("Problem OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&bindingsPath, "bindings", "", "bindings file for parameterized domains")
	cmd.Flags().StringVarP(&problemPath, "problem", "p", "", "YAML problem file to check against the domain")

	return cmd
}

// classifyDomainError names the category of a parse or compile failure.
func classifyDomainError(err error) string {
	var parseErr *domainfile.ParseError
	switch {
	case errors.As(err, &parseErr):
		return fmt.Sprintf("syntax error at line %d", parseErr.Line)
	case planner.IsUnknownState(err):
		return "unknown state"
	case planner.IsUnknownAction(err):
		return "unknown action"
	case planner.IsIncompatibleConstraints(err):
		return "incompatible constraints"
	case planner.IsAssembly(err):
		return "assembly error"
	default:
		return "invalid domain"
	}
}
