package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// errUnhealthy - ни один пул не отвечает
var errUnhealthy = errors.New("no database backend is reachable")

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check primary and fallback connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, inf, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			ok := inf.DB.TestConnection(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(inf.DB.Health(cmd.Context())); err != nil {
				return err
			}
			if !ok {
				return errUnhealthy
			}
			return nil
		},
	}
}

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the database schema",
	}

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Create tables and indexes on every configured database, each in its own dialect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, inf, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			results, err := inf.Migrate(cmd.Context())
			for _, res := range results {
				status := "applied"
				if res.Err != nil {
					status = "failed: " + res.Err.Error()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", res.Role, res.Name, res.Dialect, status)
			}
			return err
		},
	}

	cmd.AddCommand(apply)
	return cmd
}

func newAllocateCommand(opts *rootOptions) *cobra.Command {
	var (
		station int64
		year    int
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Print the next FIR number candidate for a station (nothing is reserved)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, inf, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			if year == 0 {
				year = time.Now().UTC().Year()
			}
			number, err := inf.Allocator.Allocate(cmd.Context(), station, year)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), number)
			return err
		},
	}

	cmd.Flags().Int64Var(&station, "station", 0, "station id")
	cmd.Flags().IntVar(&year, "year", 0, "registration year (default: current UTC year)")
	_ = cmd.MarkFlagRequired("station")
	return cmd
}

func newStationCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "station",
		Short: "Manage police stations",
	}

	add := &cobra.Command{
		Use:   "add CODE NAME",
		Short: "Register a station",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, inf, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			st, err := inf.Cases.CreateStation(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", st.ID, st.Code, st.Name)
			return err
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, inf, _, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer inf.Close()

			stations, err := inf.Cases.Stations(cmd.Context())
			if err != nil {
				return err
			}
			for _, st := range stations {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", st.ID, st.Code, st.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
