package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"smartfollow/internal/storage"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Chain  string
	Status string
	Limit  int
}

// Show prints addresses in the requested classification state.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Chain == "" {
		opts.Chain = ChainSolana
	}
	if opts.Status == "" {
		opts.Status = string(storage.StatusWhite)
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	_, statuses, closeStores, err := a.stores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	addrs, err := statuses.ListByStatus(ctx, opts.Chain, storage.Status(opts.Status), opts.Limit)
	if err != nil {
		return fmt.Errorf("list by status: %w", err)
	}
	if len(addrs) == 0 {
		fmt.Printf("no %s addresses on %s\n", opts.Status, opts.Chain)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ADDR\tSTATUS\tREASON\tUPDATED")
	for _, addr := range addrs {
		entry, err := statuses.GetStatus(ctx, addr, opts.Chain)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", entry.Addr, entry.Status, entry.Reason, entry.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return writer.Flush()
}
