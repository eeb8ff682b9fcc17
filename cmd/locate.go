package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/debounce"
	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/report"
	"github.com/sells-group/property-cli/pkg/geocode"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Pick and inspect property locations",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("geocode")
	},
}

var locateSearchCmd = &cobra.Command{
	Use:   "search <place>",
	Short: "Find places by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), locateCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		places, err := env.Geocoder.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printPlaces(cmd, places)
	},
}

var locateReverseCmd = &cobra.Command{
	Use:   "reverse <lat,lon | map link>",
	Short: "Describe the place at a coordinate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := geocode.ExtractCoordinates(strings.Join(args, " "))
		if !ok {
			return eris.Errorf("no coordinates found in %q", strings.Join(args, " "))
		}

		env, err := initApp(cmd.Context(), locateCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		place, err := env.Geocoder.Reverse(cmd.Context(), p)
		if errors.Is(err, geocode.ErrNoResult) {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing found at %s.\n", p)
			return nil
		}
		if err != nil {
			return err
		}
		return printPlaces(cmd, []geocode.Place{*place})
	},
}

var locateLinkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Extract coordinates from a Google Maps or OpenStreetMap link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := geocode.ExtractCoordinates(args[0])
		if !ok {
			return eris.Errorf("no coordinates found in %q", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "lat=%.6f lon=%.6f\n", p.Lat, p.Lon)
		return nil
	},
}

var locateWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reverse geocode a stream of points read from stdin",
	Long: "Reads one coordinate pair or map link per line, as a map pin would report while " +
		"being dragged, and looks up only the points that moved far enough after long enough.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initApp(cmd.Context(), locateCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		gate := debounce.NewReverseGate(
			time.Duration(cfg.Geocode.MinIntervalMS)*time.Millisecond,
			cfg.Geocode.MinDistanceM,
		)
		return watchPoints(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), env.Geocoder, gate)
	},
}

var locateScoreCmd = &cobra.Command{
	Use:   "score <lat,lon | map link>",
	Short: "Score a location without a full property query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, ok := geocode.ExtractCoordinates(strings.Join(args, " "))
		if !ok {
			return eris.Errorf("no coordinates found in %q", strings.Join(args, " "))
		}
		city, _ := cmd.Flags().GetString("city")

		env, err := initApp(ctx, locateCmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		loc, err := env.API.Property.AnalyzeLocation(ctx, model.LocationRequest{Lat: p.Lat, Lon: p.Lon, City: city})
		if err != nil {
			return eris.New(propertyapi.Message(err, "location analysis failed"))
		}
		format, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), format, loc, func(w io.Writer) error {
			return printLocation(w, loc)
		})
	},
}

// watchPoints reverse geocodes each input line the gate lets through.
func watchPoints(ctx context.Context, r io.Reader, w io.Writer, gc geocode.Client, gate *debounce.ReverseGate) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p, ok := geocode.ExtractCoordinates(line)
		if !ok {
			fmt.Fprintf(w, "? %s\n", line)
			continue
		}
		if !gate.Allow(p.Orb()) {
			zap.L().Debug("locate: reverse skipped", zap.Stringer("point", p))
			continue
		}
		place, err := gc.Reverse(ctx, p)
		switch {
		case errors.Is(err, geocode.ErrNoResult):
			fmt.Fprintf(w, "%s\t(nothing found)\n", p)
		case err != nil:
			fmt.Fprintf(w, "%s\terror: %v\n", p, err)
		default:
			fmt.Fprintf(w, "%s\t%s\n", p, place.DisplayName)
		}
	}
	return eris.Wrap(sc.Err(), "read points")
}

func printPlaces(cmd *cobra.Command, places []geocode.Place) error {
	w := cmd.OutOrStdout()
	if asGeoJSON, _ := cmd.Flags().GetBool("geojson"); asGeoJSON {
		data, err := geocode.FeatureCollection(places)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if len(places) == 0 {
		fmt.Fprintln(w, "No places found.")
		return nil
	}
	for i, p := range places {
		fmt.Fprintf(w, "%d. %s\n   %s", i+1, p.DisplayName, p.Point)
		if p.City != "" {
			fmt.Fprintf(w, "  city=%s", p.City)
		}
		if p.District != "" {
			fmt.Fprintf(w, "  district=%s", p.District)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printLocation(w io.Writer, loc *model.LocationAnalysis) error {
	fmt.Fprintf(w, "Location score: %s\n", report.Percent(model.NormalizeScore(loc.Score)))
	if loc.RiskLevel != "" {
		fmt.Fprintf(w, "Risk level:     %s\n", report.Label(loc.RiskLevel))
	}
	for _, f := range loc.RiskFactors {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	for _, cat := range loc.FacilityCategories() {
		fmt.Fprintf(w, "%s: %d nearby\n", report.Label(cat), len(loc.Facilities[cat]))
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{locateSearchCmd, locateReverseCmd} {
		c.Flags().Bool("geojson", false, "print results as a GeoJSON FeatureCollection")
	}
	locateScoreCmd.Flags().String("city", "", "city hint for the backend")
	locateScoreCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")

	locateCmd.AddCommand(locateSearchCmd, locateReverseCmd, locateLinkCmd, locateWatchCmd, locateScoreCmd)
	rootCmd.AddCommand(locateCmd)
}
