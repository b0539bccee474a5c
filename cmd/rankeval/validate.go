package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ricesearch/rankeval/internal/trec"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a run file and qrels file for consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			_, log, err := setup(cmd)
			if err != nil {
				return err
			}

			runPath, _ := cmd.Flags().GetString("run")
			qrelsPath, _ := cmd.Flags().GetString("qrels")

			entries, runSrc, err := trec.LoadRun(runPath)
			if err != nil {
				return err
			}
			qrels, qrelsSrc, err := trec.LoadQrels(qrelsPath)
			if err != nil {
				return err
			}

			rep := trec.Validate(entries, qrels)
			log.Debug("Validated inputs", "errors", len(rep.Errors), "warnings", len(rep.Warnings))

			if format == "json" {
				err = writeJSON(cmd.OutOrStdout(), map[string]any{
					"run_file":   runSrc,
					"qrels_file": qrelsSrc,
					"valid":      rep.Valid(),
					"report":     rep,
				})
			} else {
				err = writeValidation(cmd.OutOrStdout(), runSrc, qrelsSrc, rep)
			}
			if err != nil {
				return err
			}

			if !rep.Valid() {
				return fmt.Errorf("validation found %d errors", len(rep.Errors))
			}
			return nil
		},
	}

	cmd.Flags().String("run", "", "TREC run file")
	cmd.Flags().String("qrels", "", "TREC qrels file")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("qrels")

	return cmd
}
