package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/c360studio/artifactguard/rule"
)

func rulesCmd(configPath *string) *cobra.Command {
	var artifactType string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the loaded compliance rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := rule.NewFileStore(cfg.Rules.Dir, rule.WithStoreLogger(slog.Default()))
			if err != nil {
				return fmt.Errorf("load rules from %s: %w", cfg.Rules.Dir, err)
			}
			defer store.Close()

			rules, err := store.AllRules(cmd.Context())
			if err != nil {
				return err
			}

			if artifactType != "" {
				var filtered []rule.Definition
				for _, def := range rules {
					if def.AppliesTo(artifactType) {
						filtered = append(filtered, def)
					}
				}
				rules = filtered
			}

			fmt.Println(renderRules(rules))
			return nil
		},
	}

	cmd.Flags().StringVarP(&artifactType, "type", "t", "", "Only show rules applicable to this artifact type")

	return cmd
}
