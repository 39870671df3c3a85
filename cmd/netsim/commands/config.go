package commands

import (
	"fmt"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var (
		path      string
		effective bool
		write     string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print an example configuration, or the effective one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if write != "" {
				if err := config.WriteExample(write); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", write)
				return nil
			}
			if !effective {
				fmt.Fprint(cmd.OutOrStdout(), config.ExampleYAML())
				return nil
			}
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			out, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "config file (defaults to $"+configEnv+")")
	cmd.Flags().BoolVar(&effective, "effective", false, "print the configuration after file and environment overrides")
	cmd.Flags().StringVar(&write, "write", "", "write the example configuration to this path")
	return cmd
}
