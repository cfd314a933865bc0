package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
	"splice/internal/dictionary"
)

type classRow struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	Parent     string `json:"parent,omitempty"`
	Concrete   bool   `json:"concrete"`
	Properties int    `json:"properties"`
	Extension  bool   `json:"extension"`
}

type propertyRow struct {
	Name      string `json:"name"`
	PID       uint16 `json:"pid"`
	Type      string `json:"type"`
	Optional  bool   `json:"optional"`
	UniqueID  bool   `json:"unique_id"`
	Extension bool   `json:"extension"`
}

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	var extensionFiles []string
	var filePath string
	var className string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the class dictionary",
		Long: "Schema prints the baseline dictionary merged with configured extensions.\n" +
			"With --file it prints the dictionary stored in that file instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, release, err := ctx.schemaDictionary(cmd, filePath, extensionFiles)
			if err != nil {
				return err
			}
			defer release()

			if strings.TrimSpace(className) != "" {
				return printClass(cmd, dict, strings.TrimSpace(className), jsonOutput)
			}

			classes := dict.Classes()
			rows := make([]classRow, 0, len(classes))
			for _, c := range classes {
				rows = append(rows, classRow{
					Name:       c.Name,
					ID:         c.ID.String(),
					Parent:     parentName(dict, c),
					Concrete:   c.Concrete,
					Properties: len(c.Properties),
					Extension:  c.Extension,
				})
			}
			if jsonOutput {
				return writeJSON(cmd, rows)
			}

			color := shouldColorize(cmd.OutOrStdout())
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				name := r.Name
				if r.Extension {
					name = colorize(color, ansiGreen, name)
				}
				table = append(table, []string{
					name,
					orDash(r.Parent),
					yesNo(r.Concrete),
					strconv.Itoa(r.Properties),
					yesNo(r.Extension),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable(
				[]string{"Class", "Parent", "Concrete", "Properties", "Extension"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&extensionFiles, "extension", "e", nil, "Extra TOML extension file to merge (repeatable)")
	cmd.Flags().StringVar(&filePath, "file", "", "Read the dictionary stored in this file")
	cmd.Flags().StringVar(&className, "class", "", "Show the properties of one class, inherited ones included")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

// schemaDictionary builds the dictionary the schema command reports on.
func (c *commandContext) schemaDictionary(cmd *cobra.Command, filePath string, extensionFiles []string) (*dictionary.Dictionary, func(), error) {
	var extra []aaf.Option
	for _, path := range extensionFiles {
		classes, err := dictionary.LoadExtensionFile(path)
		if err != nil {
			return nil, nil, err
		}
		extra = append(extra, aaf.WithExtensions(classes...))
	}

	if strings.TrimSpace(filePath) != "" {
		opts, err := c.fileOptions()
		if err != nil {
			return nil, nil, err
		}
		f, err := aaf.OpenContext(cmd.Context(), filePath, aaf.ModeRead, append(opts, extra...)...)
		if err != nil {
			return nil, nil, err
		}
		return f.Dictionary(), func() { _ = f.Close() }, nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	dict := dictionary.NewBaseline(c.loggerValue())
	paths := append(append([]string{}, cfg.Schema.ExtensionFiles...), extensionFiles...)
	for _, path := range paths {
		classes, err := dictionary.LoadExtensionFile(path)
		if err != nil {
			return nil, nil, err
		}
		if err := dict.Merge(classes); err != nil {
			return nil, nil, fmt.Errorf("merge %s: %w", path, err)
		}
	}
	return dict, func() {}, nil
}

func printClass(cmd *cobra.Command, dict *dictionary.Dictionary, name string, jsonOutput bool) error {
	class, err := dict.ResolveName(name)
	if err != nil {
		return err
	}
	props, err := dict.PropertiesOf(class)
	if err != nil {
		return err
	}
	rows := make([]propertyRow, 0, len(props))
	for _, p := range props {
		rows = append(rows, propertyRow{
			Name:      p.Name,
			PID:       p.PID,
			Type:      p.Type.String(),
			Optional:  p.Optional,
			UniqueID:  p.UniqueID,
			Extension: p.Extension,
		})
	}
	if jsonOutput {
		return writeJSON(cmd, rows)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (parent %s)\n", class.Name, orDash(parentName(dict, class)))
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{
			r.Name,
			fmt.Sprintf("0x%04x", r.PID),
			r.Type,
			yesNo(r.Optional),
			yesNo(r.UniqueID),
			yesNo(r.Extension),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Property", "PID", "Type", "Optional", "Unique", "Extension"},
		table,
		nil,
	))
	fmt.Fprintln(out)
	return nil
}

func parentName(dict *dictionary.Dictionary, c *dictionary.ClassDef) string {
	if !c.Parent.IsNil() {
		if parent, err := dict.Resolve(c.Parent); err == nil {
			return parent.Name
		}
	}
	return c.ParentName
}
