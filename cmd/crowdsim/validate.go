package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talgya/crowdsense/internal/config"
	"github.com/talgya/crowdsense/internal/knowledge"
	"github.com/talgya/crowdsense/internal/scenario"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config, knowledge base and scenario without running",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "config      %s ok\n", configPath)

	var errs []error
	kb, err := knowledge.Load(cfg.Knowledge)
	if err != nil {
		errs = append(errs, err)
	} else {
		fmt.Fprintf(out, "knowledge   %s ok: %d events, %d rules\n", cfg.Knowledge, len(kb.Events()), kb.Len())
	}

	if cfg.Scenario != "" {
		sc, err := scenario.Load(cfg.Scenario)
		if err != nil {
			errs = append(errs, err)
		} else {
			fmt.Fprintf(out, "scenario    %s ok: %q, %d agent specs, %d objects, %d triggers\n",
				cfg.Scenario, sc.Name, len(sc.Agents), len(sc.Objects), len(sc.Triggers))
		}
	}
	return errors.Join(errs...)
}
