package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"weatherapp/internal/enrich"
	"weatherapp/internal/models"
	"weatherapp/internal/weather"
	"weatherapp/pkg/location"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List favorites after syncing with the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				printPlaces(cmd.OutOrStdout(), a.sync.Places())
				fmt.Fprintf(cmd.ErrOrStderr(), "state: %s\n", a.sync.State())
				return nil
			})
		},
	}
}

func newAddCmd() *cobra.Command {
	var search bool
	cmd := &cobra.Command{
		Use:   "add NAME [LAT LON]",
		Short: "Add a favorite by coordinates, or look it up with --search",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := placeFromArgs(ctx, a.places, args, search)
				if err != nil {
					return err
				}
				task, err := a.sync.Add(p)
				if err != nil {
					return err
				}
				wait(ctx, task)
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) %s\n", p.Name, p.ID, p.Coordinates())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&search, "search", false, "resolve NAME with the geocoder instead of LAT LON")
	return cmd
}

func placeFromArgs(ctx context.Context, places *location.Client, args []string, search bool) (models.Place, error) {
	if search {
		query := strings.Join(args, " ")
		results, err := places.Search(ctx, query, 1)
		if err != nil {
			return models.Place{}, err
		}
		if len(results) == 0 {
			return models.Place{}, fmt.Errorf("no place found for %q", query)
		}
		loc := results[0]
		return models.NewPlace(loc.Placename(), loc.Coordinates.Lat, loc.Coordinates.Lon)
	}

	if len(args) != 3 {
		return models.Place{}, fmt.Errorf("expected NAME LAT LON, got %d argument(s)", len(args))
	}
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return models.Place{}, fmt.Errorf("longitude: %w", err)
	}
	return models.NewPlace(args[0], lat, lon)
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID|NAME",
		Short: "Remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := findPlace(a.sync.Places(), args[0])
				if err != nil {
					return err
				}
				wait(ctx, a.session.Remove(p))
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge the local snapshot with the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				// Start already ran one sync; this one reports its own outcome.
				state := a.sync.Sync(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d favorite(s)\n", state, len(a.sync.Places()))
				return nil
			})
		},
	}
}

func newForecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast [ID|NAME]",
		Short: "Show the forecast for a favorite, or for the device location",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					p, err := findPlace(a.sync.Places(), args[0])
					if err != nil {
						return err
					}
					if err := a.session.Select(p); err != nil {
						return err
					}
				}
				return showForecast(ctx, cmd.OutOrStdout(), a)
			})
		},
	}
}

// showForecast prints the forecast for the session's active coordinates.
func showForecast(ctx context.Context, w io.Writer, a *app) error {
	coords, err := a.session.ActiveCoordinates(ctx, a.device)
	if err != nil {
		return err
	}

	var placename string
	if _, selected := a.session.Current(); !selected {
		fix, err := location.Locate(ctx, a.device, a.places)
		if err != nil {
			return err
		}
		placename = fix.Placename
	}

	forecast, err := a.weather.Fetch(ctx, coords.Lat, coords.Lon)
	if err != nil {
		return err
	}
	printForecast(w, a.session.Title(placename), coords.String(), forecast)
	return nil
}

func newDashboardCmd() *cobra.Command {
	var names bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show current conditions for every favorite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var reverser location.Reverser
				if names {
					reverser = a.places
				}
				summaries := enrich.Summaries(ctx, a.sync.Places(), a.weather, reverser)
				printSummaries(cmd.OutOrStdout(), summaries)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&names, "names", false, "also look up the geocoded name of each favorite")
	return cmd
}

func printPlaces(w io.Writer, places []models.Place) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLATITUDE\tLONGITUDE")
	for _, p := range places {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\n", p.ID, p.Name, p.Latitude, p.Longitude)
	}
	tw.Flush()
}

func printForecast(w io.Writer, title, coords string, f *weather.Forecast) {
	fmt.Fprintf(w, "%s (%s)\n", title, coords)
	fmt.Fprintf(w, "%s, %.1f°C, humidity %.0f%%, wind %.1f km/h\n",
		weather.Condition(f.Current.WeatherCode), f.Current.Temperature, f.Current.Humidity, f.Current.WindSpeed)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMIN\tMAX\tPRECIP")
	for _, d := range f.Daily.Days() {
		fmt.Fprintf(tw, "%s\t%.1f°C\t%.1f°C\t%.1f mm\n", d.Date, d.TempMin, d.TempMax, d.Precipitation)
	}
	tw.Flush()
}

func printSummaries(w io.Writer, summaries []*enrich.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPLACE\tNOW\tCONDITION\tERRORS")
	for _, s := range summaries {
		now, condition := "-", "-"
		if s.Forecast != nil {
			now = fmt.Sprintf("%.1f°C", s.Forecast.Current.Temperature)
			condition = weather.Condition(s.Forecast.Current.WeatherCode)
		}
		var errs []string
		for _, step := range slices.Sorted(maps.Keys(s.Errors)) {
			errs = append(errs, fmt.Sprintf("%s: %v", step, s.Errors[step]))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Place.Name, orDash(s.Placename), now, condition, orDash(strings.Join(errs, "; ")))
	}
	tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
