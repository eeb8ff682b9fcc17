package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/report"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List subscription plans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initApp(cmd.Context(), cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		plans, err := env.API.Auth.Plans(cmd.Context())
		if err != nil {
			return eris.New(propertyapi.Message(err, "could not load plans"))
		}
		format, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), format, plans, func(w io.Writer) error {
			return printPlans(w, plans)
		})
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <plan>",
	Short: "Switch the signed-in account to another plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		plan, err := parsePlan(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		user, err := env.API.Auth.Upgrade(ctx, plan)
		if err != nil {
			return eris.New(propertyapi.Message(err, "upgrade failed"))
		}
		env.Session.UpdateQuota(user.Plan, user.AnalysesRemaining)
		fmt.Fprintf(cmd.OutOrStdout(), "Plan changed to %s.\n", plan)
		return printUser(cmd.OutOrStdout(), env.Session.User())
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout <plan>",
	Short: "Start a hosted checkout for a paid plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		plan, err := parsePlan(args[0])
		if err != nil {
			return err
		}

		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		resp, err := env.API.Payments.CreateCheckout(ctx, plan)
		if err != nil {
			return eris.New(propertyapi.Message(err, err.Error()))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Complete the payment at:\n%s\n", resp.CheckoutURL)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <session-id>",
	Short: "Check the outcome of a checkout session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		res, err := env.API.Payments.VerifySession(ctx, args[0])
		if err != nil {
			return eris.New(propertyapi.Message(err, "could not verify payment"))
		}
		if !res.Paid {
			fmt.Fprintf(cmd.OutOrStdout(), "Payment not completed (status: %s).\n", res.Status)
			return nil
		}
		if _, err := env.Session.RefreshUser(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Payment confirmed.\n")
		return printUser(cmd.OutOrStdout(), env.Session.User())
	},
}

func parsePlan(s string) (model.PlanTier, error) {
	p := model.PlanTier(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", eris.Errorf("unknown plan %q (want free, standard or premium)", s)
	}
	return p, nil
}

func printPlans(w io.Writer, plans []model.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tPRICE\tANALYSES\tFEATURES")
	for _, p := range plans {
		currency := p.Currency
		if currency == "" {
			currency = "USD"
		}
		price := "free"
		if p.Price > 0 {
			price = fmt.Sprintf("%s %.2f", strings.ToUpper(currency), p.Price)
		}
		limit := report.Number(float64(p.AnalysesLimit))
		if p.AnalysesLimit < 0 {
			limit = "unlimited"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, price, limit, strings.Join(p.Features, ", "))
	}
	return tw.Flush()
}

func init() {
	plansCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(plansCmd, upgradeCmd, checkoutCmd, verifyCmd)
}
