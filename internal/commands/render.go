package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/store"
)

// printShelves renders shelves in order with the caller's access on each.
func printShelves(w io.Writer, snap store.Snapshot, shelves models.ShelfList) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("ID"), bold.Sprint("Title"), bold.Sprint("Owner"), bold.Sprint("Items"), bold.Sprint("Access"))
	for i, s := range shelves {
		tbl.AddRow(i+1, s.ID, s.Title, s.Owner, len(s.Items), access(snap, s.ID))
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(w, tbl)
}

func access(snap store.Snapshot, id string) string {
	rec, ok := snap.Permission(id)
	switch {
	case !ok:
		return "?"
	case rec.IsOwner:
		return "owner"
	case rec.HasEditAccess:
		return "editor"
	}
	return "-"
}

func printOrder(w io.Writer, order []string) {
	_, _ = fmt.Fprintln(w, strings.Join(order, " "))
}

func printEditors(w io.Writer, shelfID string, editors []string) {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprintf("Editors of %s", shelfID))
	if len(editors) == 0 {
		tbl.AddRow("(none)")
	}
	for _, e := range editors {
		tbl.AddRow(e)
	}
	_, _ = fmt.Fprintln(w, tbl)
}
