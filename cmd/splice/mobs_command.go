package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
	"splice/internal/codec"
	"splice/internal/timeline"
)

type mobRow struct {
	MobID    string    `json:"mob_id"`
	Kind     string    `json:"kind"`
	Name     string    `json:"name"`
	Slots    int       `json:"slots"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func newMobsCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "mobs <file>",
		Short: "List the mobs stored in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := timeline.ParseKind(strings.ToLower(strings.TrimSpace(kindFlag)))
			if err != nil {
				return err
			}
			f, err := ctx.openFile(cmd, args[0], aaf.ModeRead)
			if err != nil {
				return err
			}
			defer f.Close()

			var rows []mobRow
			for m, err := range f.Storage().MobIterator(kind) {
				if err != nil {
					return err
				}
				row, err := summarizeMob(m)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}

			if jsonOutput {
				if rows == nil {
					rows = []mobRow{}
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No mobs found")
				return nil
			}
			color := shouldColorize(out)
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					colorize(color, ansiCyan, r.MobID),
					kindLabel(r.Kind),
					orDash(r.Name),
					strconv.Itoa(r.Slots),
					formatTime(r.Modified),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Mob ID", "Kind", "Name", "Slots", "Modified"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "any", "Filter by kind: any, composition, master or source")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func summarizeMob(m *timeline.Mob) (mobRow, error) {
	id, err := m.ID()
	if err != nil {
		return mobRow{}, err
	}
	created, _ := m.CreationTime()
	modified, _ := m.LastModified()
	return mobRow{
		MobID:    id.String(),
		Kind:     m.Kind().String(),
		Name:     m.Name(),
		Slots:    m.SlotCount(),
		Created:  created,
		Modified: modified,
	}, nil
}

func parseMobID(raw string) (codec.MobID, error) {
	id, err := codec.ParseMobID(strings.TrimSpace(raw))
	if err != nil {
		return codec.MobID{}, fmt.Errorf("invalid mob id %q: %w", raw, err)
	}
	return id, nil
}
