package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"permgate/internal/permission"
	"permgate/internal/policy"
)

func validateCmd() *cobra.Command {
	var (
		parentRef  string
		policyFile bool
	)
	cmd := &cobra.Command{
		Use:   "validate [preset|matrix-file]",
		Short: "Validate a matrix, optionally against a parent",
		Long: `Validates a permission matrix given as a preset name or a JSON/YAML file.
With --parent the matrix is checked as a restriction of the parent instead.
With --policy the argument is a policy document (preset or matrix plus restrictions).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator := permission.NewValidator(logger)

			if policyFile {
				p, err := policy.LoadPolicy(args[0], logger)
				if err != nil {
					printFail("Policy", err.Error())
					return fmt.Errorf("policy %s is invalid", args[0])
				}
				printValidation(p.Validation)
				return nil
			}

			m, err := loadMatrix(args[0])
			if err != nil {
				return err
			}

			if parentRef == "" {
				if !printValidation(validator.Validate(m)) {
					return fmt.Errorf("matrix is invalid")
				}
				return nil
			}

			parent, err := loadMatrix(parentRef)
			if err != nil {
				return fmt.Errorf("parent: %w", err)
			}
			if !printValidation(validator.ValidateInheritance(parent, m)) {
				return fmt.Errorf("matrix cannot inherit from %s", parentRef)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&parentRef, "parent", "p", "", "parent preset or matrix file")
	cmd.Flags().BoolVar(&policyFile, "policy", false, "treat the argument as a policy document")
	return cmd
}
