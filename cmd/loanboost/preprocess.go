package main

import (
	"fmt"

	"github.com/YuminosukeSato/loanboost/config"
	"github.com/YuminosukeSato/loanboost/preprocessing"
	"github.com/spf13/cobra"
)

func (a *app) preprocessCmd(d *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Clean the raw loan table",
		Long: `Removes the Selected, ChgOffDate, LoanNr_ChkDgt and Name columns, reduces
NAICS to its two-digit sector and drops every row with a missing value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			fs := cmd.Flags()
			setString(fs, "input", &cfg.RawDataPath)
			setString(fs, "output", &cfg.ProcessedDataPath)
			setString(fs, "code-policy", &cfg.CodePolicy)

			policy, err := preprocessing.ParseCodePolicy(cfg.CodePolicy)
			if err != nil {
				return err
			}
			res, err := preprocessing.Preprocess(cmd.Context(), cfg.RawDataPath, cfg.ProcessedDataPath,
				preprocessing.WithCodePolicy(policy))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d rows to %s (%d with missing values, %d with invalid NAICS)\n",
				res.OutputRows, res.InputRows, cfg.ProcessedDataPath, res.MissingRows, res.InvalidCodes)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.String("input", d.RawDataPath, "raw CSV file")
	fs.String("output", d.ProcessedDataPath, "cleaned CSV file")
	fs.String("code-policy", d.CodePolicy, "invalid NAICS handling: drop or strict")
	return cmd
}
