package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/form"
	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/report"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Submit a property for analysis",
	Long: "Validates the property details, submits them with the free-text query and prints the " +
		"analysis. The backend may take up to the configured query timeout.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		features, err := featuresFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		req, err := env.Validator.BuildRequest(strings.Join(args, " "), features)
		if err != nil {
			return err
		}
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		zap.L().Info("submitting property query",
			zap.String("city", req.Features.City),
			zap.Strings("tags", req.Features.Tags),
		)
		rec, err := env.API.Property.Query(ctx, req)
		if err != nil {
			if propertyapi.IsPaymentRequired(err) {
				fmt.Fprintln(cmd.ErrOrStderr(), "You have used all analyses on your plan. Run `property-cli plans` and `property-cli checkout <plan>` to upgrade.")
			}
			return eris.New(propertyapi.Message(err, "analysis failed"))
		}

		env.History.Remember(rec)
		env.Session.BumpHistory()
		env.Session.UpdateQuota(rec.Plan, rec.AnalysesRemaining)

		format, _ := cmd.Flags().GetString("output")
		if err := writeOutput(cmd.OutOrStdout(), format, rec, func(w io.Writer) error {
			_, err := io.WriteString(w, report.FormatSummary(*rec, nil))
			return err
		}); err != nil {
			return err
		}

		if pdf, _ := cmd.Flags().GetBool("pdf"); pdf {
			path, err := env.Exporter.Export(ctx, rec, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", path)
		}
		return nil
	},
}

// featuresFromFlags collects the structured property fields. Only flags the
// user set are filled in.
func featuresFromFlags(fs *pflag.FlagSet) (model.Features, error) {
	var f model.Features
	f.City, _ = fs.GetString("city")
	f.District, _ = fs.GetString("district")

	if fs.Changed("lat") {
		v, _ := fs.GetFloat64("lat")
		f.Lat = &v
	}
	if fs.Changed("lon") {
		v, _ := fs.GetFloat64("lon")
		f.Lon = &v
	}
	if link, _ := fs.GetString("link"); link != "" {
		if err := form.ApplyLink(&f, link); err != nil {
			return f, err
		}
	}
	for name, dst := range map[string]**int{"beds": &f.Beds, "baths": &f.Baths, "year-built": &f.YearBuilt} {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = &v
		}
	}
	for name, dst := range map[string]**float64{"area": &f.Area, "asking-price": &f.AskingPrice} {
		if fs.Changed(name) {
			v, _ := fs.GetFloat64(name)
			*dst = &v
		}
	}
	if tags, _ := fs.GetString("tags"); tags != "" {
		f.Tags = form.ParseTags(tags)
	}
	return f, nil
}

func addFeatureFlags(fs *pflag.FlagSet) {
	fs.String("city", "", "city the property is in")
	fs.String("district", "", "district")
	fs.Float64("lat", 0, "latitude")
	fs.Float64("lon", 0, "longitude")
	fs.String("link", "", "map link to take coordinates from (Google Maps or OpenStreetMap)")
	fs.Int("beds", 0, "bedrooms")
	fs.Int("baths", 0, "bathrooms")
	fs.Float64("area", 0, "floor area in sq ft")
	fs.Int("year-built", 0, "construction year")
	fs.Float64("asking-price", 0, "asking price")
	fs.String("tags", "", "comma separated tags")
}

func init() {
	addFeatureFlags(analyzeCmd.Flags())
	analyzeCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	analyzeCmd.Flags().Bool("pdf", false, "also export the analysis as a PDF report")
	rootCmd.AddCommand(analyzeCmd)
}
