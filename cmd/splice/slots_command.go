package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"splice/internal/aaf"
)

type slotRow struct {
	SlotID   uint32 `json:"slot_id"`
	Name     string `json:"name"`
	Track    string `json:"track"`
	EditRate string `json:"edit_rate"`
	Origin   int64  `json:"origin"`
	Segment  string `json:"segment"`
	Length   string `json:"length"`
}

func newSlotsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "slots <file> <mob-id>",
		Short: "List the slots of one mob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMobID(args[1])
			if err != nil {
				return err
			}
			f, err := ctx.openFile(cmd, args[0], aaf.ModeRead)
			if err != nil {
				return err
			}
			defer f.Close()

			mob, err := f.Storage().LookupMob(id)
			if err != nil {
				return err
			}

			rows := []slotRow{}
			for slot, err := range mob.SlotIterator() {
				if err != nil {
					return err
				}
				slotID, err := slot.ID()
				if err != nil {
					return err
				}
				rate, err := slot.EditRate()
				if err != nil {
					return err
				}
				origin, err := slot.Origin()
				if err != nil {
					return err
				}
				seg, err := slot.Segment()
				if err != nil {
					return err
				}
				length, err := slot.Length()
				if err != nil {
					return err
				}
				track := "-"
				if n, ok := slot.PhysicalTrackNumber(); ok {
					track = strconv.FormatUint(uint64(n), 10)
				}
				rows = append(rows, slotRow{
					SlotID:   slotID,
					Name:     slot.Name(),
					Track:    track,
					EditRate: rate.String(),
					Origin:   origin,
					Segment:  seg.Object().ClassName(),
					Length:   length.String(),
				})
			}

			if jsonOutput {
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", kindLabel(mob.Kind().String()), orDash(mob.Name()), id)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No slots")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					strconv.FormatUint(uint64(r.SlotID), 10),
					orDash(r.Name),
					r.Track,
					r.EditRate,
					strconv.FormatInt(r.Origin, 10),
					r.Segment,
					r.Length,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Slot", "Name", "Track", "Edit Rate", "Origin", "Segment", "Length"},
				table,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignRight},
			))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
