package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWeaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weave [flags] [snapshot]",
		Short: "Weave a snapshot and write the resulting source units",
		Long:  "Weave a snapshot and write the resulting source units. Without an argument the snapshot named by weave.toml is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  weaveExecution,
	}
	cmd.Flags().StringP("output", "o", "woven", "directory receiving the units")
	cmd.Flags().Int("jobs", 1, "declaring types woven in parallel")
	cmd.Flags().String("cache", "", "cache directory (auto selects the user cache, empty or off disables)")
	cmd.Flags().String("ui", "auto", "progress UI mode (auto|on|off)")
	cmd.Flags().Bool("timings", false, "show timing information")
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] [snapshot]",
		Short: "Weave a snapshot without writing anything",
		Long:  "Weave a snapshot, print the diagnostics and summarize the override chains and constructor changes of every unit.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkExecution,
	}
	cmd.Flags().Int("jobs", 1, "declaring types woven in parallel")
	cmd.Flags().Bool("timings", false, "show timing information")
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	return cmd
}

func weaveExecution(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args, ".")
	if err != nil {
		return err
	}
	logger, err := newLogger(s)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mode, err := readUIMode(s.UI)
	if err != nil {
		return err
	}
	dc, err := s.openCache()
	if err != nil {
		return err
	}
	p := &pipeline{settings: s, logger: logger, cache: dc, useUI: shouldUseTUI(mode)}
	out, err := p.run(cmd.Context())
	if err != nil {
		return err
	}
	if err := printDiagnostics(cmd.OutOrStdout(), out, s); err != nil {
		return err
	}

	written, err := writeUnits(s.Output, out.units)
	if err != nil {
		return err
	}
	logger.Info("units written", zap.String("output", s.Output), zap.Int("units", written))
	note := ""
	if out.cached {
		note = " (cached)"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wove %d units into %s, %d failed targets%s\n", written, s.Output, len(out.failed), note)
	if s.Timings {
		fmt.Fprint(cmd.ErrOrStderr(), out.timer.Summary())
	}
	if out.bag.HasErrors() {
		return errDiagnostics
	}
	return nil
}

func checkExecution(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd, args, ".")
	if err != nil {
		return err
	}
	logger, err := newLogger(s)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p := &pipeline{settings: s, logger: logger}
	out, err := p.run(cmd.Context())
	if err != nil {
		return err
	}
	if err := printDiagnostics(cmd.OutOrStdout(), out, s); err != nil {
		return err
	}
	summary := cmd.OutOrStdout()
	if s.Format == "json" {
		summary = cmd.ErrOrStderr()
	}
	writeSummary(summary, out.result)
	if s.Timings {
		fmt.Fprint(cmd.ErrOrStderr(), out.timer.Summary())
	}
	if out.bag.HasErrors() {
		return errDiagnostics
	}
	return nil
}
