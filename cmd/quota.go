package main

import (
	"context"
	"time"

	"github.com/desertthunder/ytune/internal/formatter"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/urfave/cli/v3"
)

type quotaOutput struct {
	Metered  bool               `json:"metered"`
	Slots    []models.QuotaSlot `json:"slots,omitempty"`
	Searches int                `json:"cachedSearches"`
	Purged   int                `json:"purged,omitempty"`
}

// Quota prints API key usage and the number of cached searches.
func (r *Runner) Quota(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	out := quotaOutput{Metered: e.Metered()}
	if cmd.Bool("purge") {
		out.Purged = e.Results().PurgeExpired(ctx)
	}
	out.Searches = e.Results().Len(ctx)
	if out.Metered {
		out.Slots = e.Tracker().Slots()
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	if !out.Metered {
		r.writePlain("%s\n", formatter.Styles.Muted("No API keys configured; searches are unmetered."))
	} else if err := formatter.RenderQuota(r.output, out.Slots, e.Tracker().Window(), time.Now()); err != nil {
		return err
	}
	if cmd.Bool("purge") {
		r.writePlain("Purged %d expired searches\n", out.Purged)
	}
	return r.writePlain("Cached searches: %d\n", out.Searches)
}
