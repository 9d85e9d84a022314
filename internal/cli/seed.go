package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"missioncore/internal/core"
)

func newSeedCommand(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load planets, scientists and missions from a YAML file",
		Long: `Load records from a YAML file in a single transaction. The HTTP API cannot
create planets, so seeding is how destinations get into the store. Planets
whose id already exists are overwritten in place.

  planets:
    - {id: 1, name: Mars, distance_from_earth: 140, nearest_star: Sun}
  scientists:
    - {name: Ada, field_of_study: math}
  missions:
    - {name: Probe, scientist_id: 1, planet_id: 1}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readSeedFile(file)
			if err != nil {
				return err
			}
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			counts, _, err := a.service.Seed(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("seed %s: %w", file, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("Seeded"), file)
			fmt.Fprintf(out, "  planets:    %d (%d updated)\n", counts.Planets, counts.PlanetsUpdated)
			fmt.Fprintf(out, "  scientists: %d\n", counts.Scientists)
			fmt.Fprintf(out, "  missions:   %d\n", counts.Missions)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readSeedFile(path string) (core.SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return core.SeedData{}, fmt.Errorf("read seed file: %w", err)
	}
	var data core.SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return core.SeedData{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return data, nil
}
