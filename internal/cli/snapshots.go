package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/chromascribe/pkg/errors"
	"github.com/matzehuels/chromascribe/pkg/session"
)

// snapshotsCommand creates the snapshot library command.
func (c *CLI) snapshotsCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List saved snapshots",
		Long: `List snapshots saved with "draw --save" or the S key in the viewer.

Snapshots are stored as chroma-scribe-<id>.png with a JSON sidecar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewSnapshotStore(dir)
			if err != nil {
				return err
			}
			metas, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(metas) == 0 {
				printInfo("No snapshots in %s", store.Path())
				return nil
			}

			rows := make([][]string, 0, len(metas))
			for _, m := range metas {
				prompt := m.Prompt
				if prompt == "" {
					prompt = "—"
				}
				rows = append(rows, []string{
					m.ID,
					m.CreatedAt.Local().Format("Jan 2 15:04"),
					m.Brush,
					fmt.Sprint(m.Segments),
					prompt,
				})
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("ID", "Created", "Brush", "Segments", "Prompt").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
					}
					return lipgloss.NewStyle().Padding(0, 1)
				})
			fmt.Println(t.Render())
			printDetail("Directory: %s", store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "snapshot directory (default ~/Pictures/chromascribe)")

	cmd.AddCommand(c.snapshotsDeleteCommand(&dir))
	return cmd
}

// snapshotsDeleteCommand creates the "snapshots rm" subcommand.
func (c *CLI) snapshotsDeleteCommand(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewSnapshotStore(*dir)
			if err != nil {
				return err
			}
			meta, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if meta == nil {
				return errs.New(errs.ErrCodeNotFound, "no snapshot %q", args[0])
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted snapshot %s", args[0])
			return nil
		},
	}
}
