package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"permgate/internal/domain"
	"permgate/internal/permission"
)

func restrictCmd() *cobra.Command {
	var (
		restrictionsFile string
		format           string
	)
	cmd := &cobra.Command{
		Use:   "restrict [parent preset|matrix-file]",
		Short: "Derive a child matrix no more permissive than the parent",
		Long: `Applies a YAML restrictions file to the parent and prints the resulting
child matrix. Fails when the restrictions would grant more than the parent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := loadMatrix(args[0])
			if err != nil {
				return err
			}

			var r domain.Restrictions
			if restrictionsFile != "" {
				data, err := os.ReadFile(restrictionsFile)
				if err != nil {
					return fmt.Errorf("read restrictions: %w", err)
				}
				dec := yaml.NewDecoder(bytes.NewReader(data))
				dec.KnownFields(true)
				if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("parse restrictions %s: %w", restrictionsFile, err)
				}
			}

			child, err := permission.NewValidator(logger).CreateRestrictedChild(parent, r)
			if err != nil {
				return err
			}
			return printEncoded(child, format)
		},
	}
	cmd.Flags().StringVarP(&restrictionsFile, "restrictions", "r", "", "YAML file of restrictions")
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}
