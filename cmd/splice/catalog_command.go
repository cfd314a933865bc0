package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
	"splice/internal/catalog"
	"splice/internal/config"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Maintain the index of mobs across files",
	}

	catalogCmd.AddCommand(newCatalogIndexCommand(ctx))
	catalogCmd.AddCommand(newCatalogFindCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogRemoveCommand(ctx))
	catalogCmd.AddCommand(newCatalogPruneCommand(ctx))

	return catalogCmd
}

// withCatalog opens the configured catalog for the duration of fn.
func (c *commandContext) withCatalog(fn func(*config.Config, *catalog.Catalog) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cfg, c.loggerValue())
	if err != nil {
		return err
	}
	defer cat.Close()
	return fn(cfg, cat)
}

func newCatalogIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index <file>...",
		Short: "Record the mobs of one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(_ *config.Config, cat *catalog.Catalog) error {
				out := cmd.OutOrStdout()
				var failed []error
				for _, path := range args {
					count, err := ctx.indexOne(cmd, cat, path)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed = append(failed, err)
						continue
					}
					fmt.Fprintf(out, "Indexed %s (%d mobs)\n", path, count)
				}
				if len(failed) > 0 {
					return fmt.Errorf("%d of %d files failed to index: %w", len(failed), len(args), errors.Join(failed...))
				}
				return nil
			})
		},
	}
}

func (c *commandContext) indexOne(cmd *cobra.Command, cat *catalog.Catalog, path string) (int, error) {
	f, err := c.openFile(cmd, path, aaf.ModeRead)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, mobs, err := catalog.Summarize(f)
	if err != nil {
		return 0, err
	}
	if err := cat.IndexFile(cmd.Context(), info, mobs); err != nil {
		return 0, err
	}
	return len(mobs), nil
}

func newCatalogFindCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "find <mob-id>",
		Short: "Show which indexed files hold a mob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(func(_ *config.Config, cat *catalog.Catalog) error {
				locs, err := cat.FindMob(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOutput {
					rows := make([]map[string]any, 0, len(locs))
					for _, l := range locs {
						rows = append(rows, map[string]any{
							"path":     l.Path,
							"mob_id":   l.MobID.String(),
							"kind":     l.Kind,
							"name":     l.Name,
							"slots":    l.Slots,
							"modified": l.Modified,
						})
					}
					return writeJSON(cmd, rows)
				}
				out := cmd.OutOrStdout()
				if len(locs) == 0 {
					fmt.Fprintf(out, "Mob %s is not in the catalog\n", id)
					return nil
				}
				rows := make([][]string, 0, len(locs))
				for _, l := range locs {
					rows = append(rows, []string{l.Path, kindLabel(l.Kind), orDash(l.Name), strconv.Itoa(l.Slots), formatTime(l.Modified)})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Path", "Kind", "Name", "Slots", "Modified"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(_ *config.Config, cat *catalog.Catalog) error {
				files, err := cat.ListFiles(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, fi := range files {
					rows = append(rows, []string{
						fi.Path,
						fi.FileID,
						strconv.FormatUint(fi.Generation, 10),
						fi.ByteOrder,
						strconv.Itoa(fi.Mobs),
						formatTime(fi.IndexedAt),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Path", "File ID", "Generation", "Byte Order", "Mobs", "Indexed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func newCatalogRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <file>",
		Short: "Drop a file from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(_ *config.Config, cat *catalog.Catalog) error {
				removed, err := cat.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !removed {
					fmt.Fprintf(out, "%s was not indexed\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newCatalogPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop catalog entries whose files no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(_ *config.Config, cat *catalog.Catalog) error {
				pruned, err := cat.Prune(cmd.Context(), pathExists)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(pruned) == 0 {
					fmt.Fprintln(out, "Nothing to prune")
					return nil
				}
				for _, path := range pruned {
					fmt.Fprintf(out, "Pruned %s\n", path)
				}
				return nil
			})
		},
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(filepath.Clean(path))
	return !errors.Is(err, fs.ErrNotExist)
}
