package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ruslano69/firvault/pkg/access"
	"github.com/ruslano69/firvault/pkg/audit"
	"github.com/ruslano69/firvault/pkg/faults"
	"github.com/ruslano69/firvault/pkg/security"
)

func newQueryCommand(opts *rootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "query SQL [PARAM...]",
		Short: "Run a read-only report query and print rows as JSON",
		Long: `Run a SELECT or WITH query through the same primary/fallback facade as the API.
Parameters are passed as strings and bound to ? placeholders in order.
The role must be allowed reports.read.`,
		Example: `  firvault query --role Supervisor "SELECT status, COUNT(*) AS n FROM cases WHERE station_id = ? GROUP BY status" 1`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := access.ParseRole(role)
			if err != nil {
				return faults.New(faults.KindForbidden, "query", err)
			}
			if err := access.Check(r, access.ReportsRead); err != nil {
				return err
			}

			_, inf, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			params := make([]any, 0, len(args)-1)
			for _, p := range args[1:] {
				params = append(params, p)
			}

			res, runErr := inf.Reports.Run(cmd.Context(), args[0], params)

			entry := audit.NewEntry(r.String(), access.ReportsRead.String(), audit.OutcomeAllowed).
				WithUser(security.CurrentUser()).
				WithResource("cli:query")
			if runErr != nil {
				entry.Outcome = audit.OutcomeFailed
				entry.WithError(runErr)
			}
			_ = inf.Audit.Record(cmd.Context(), entry)

			if runErr != nil {
				return runErr
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "caller role (Admin, Supervisor, ...)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
