package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
)

func newCompactCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "compact <source> <destination>",
		Short: "Write a compacted copy of a file",
		Long: "Compact copies the live objects and streams of a file into a new file,\n" +
			"dropping superseded data. The copy keeps the file identity.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if _, err := os.Stat(dst); err == nil {
				if !overwrite {
					return fmt.Errorf("destination %s already exists (use --overwrite to replace it)", dst)
				}
				if err := os.Remove(dst); err != nil {
					return fmt.Errorf("remove %s: %w", dst, err)
				}
			}

			f, err := ctx.openFile(cmd, src, aaf.ModeRead)
			if err != nil {
				return err
			}
			defer f.Close()

			srcSize := fileSize(src)
			if _, err := f.SaveAs(cmd.Context(), dst); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compacted %s to %s (%d mobs, %d -> %d bytes)\n",
				src, dst, f.Storage().CountMobs(), srcSize, fileSize(dst))
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the destination if it exists")
	return cmd
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
