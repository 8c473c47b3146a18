package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
)

// Fix feeds a manual GPS reading: "fix <lat> <lon> [accuracy]".
func (a *App) Fix(ctx context.Context, args []string) error {
	if len(args) < 2 {
		a.println("Usage: fix <lat> <lon> [accuracy]")
		return nil
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		a.println("Latitude must be a number between -90 and 90.")
		return nil
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lon < -180 || lon > 180 {
		a.println("Longitude must be a number between -180 and 180.")
		return nil
	}
	fix := models.LocationFix{Latitude: lat, Longitude: lon, RecordedAt: time.Now().UTC()}
	if len(args) > 2 {
		acc, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			a.println("Accuracy must be a number.")
			return nil
		}
		fix.Accuracy = &acc
	}

	d, err := a.d.Tracker.Accept(ctx, fix)
	if err != nil {
		return err
	}
	a.printf("Location %s\n", d)
	return nil
}

// Flush uploads queued locations now, regardless of business hours.
func (a *App) Flush(ctx context.Context) error {
	res, err := a.d.Locations.Flush(ctx)
	a.println(fmt.Sprintf("Uploaded %d, failed %d, evicted %d.", res.Uploaded, res.Failed, res.Evicted))
	return err
}
