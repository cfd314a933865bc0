package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
	"splice/internal/export"
)

func newDumpCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var outPath string
	var mobFlag string

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Export a file's object graph as JSON or BSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			f, err := ctx.openFile(cmd, args[0], aaf.ModeRead)
			if err != nil {
				return err
			}
			defer f.Close()

			var doc export.Document
			if strings.TrimSpace(mobFlag) != "" {
				id, err := parseMobID(mobFlag)
				if err != nil {
					return err
				}
				mob, err := f.Storage().LookupMob(id)
				if err != nil {
					return err
				}
				if doc, err = export.MobTree(mob); err != nil {
					return err
				}
			} else if doc, err = export.FileTree(f); err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			target := strings.TrimSpace(outPath)
			if target != "" && target != "-" {
				out, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create %s: %w", target, err)
				}
				if err := export.Encode(out, doc, format); err != nil {
					_ = out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return fmt.Errorf("close %s: %w", target, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s export to %s\n", format, target)
				return nil
			}
			return export.Encode(w, doc, format)
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or bson")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to this path instead of stdout")
	cmd.Flags().StringVar(&mobFlag, "mob", "", "Export only the mob with this id")
	return cmd
}
