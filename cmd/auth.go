package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/session"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		email, _ := cmd.Flags().GetString("email")
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}

		env, err := initApp(ctx, session.ViewLogin)
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.Session.Login(ctx, model.Credentials{Email: strings.TrimSpace(email), Password: password})
		if err != nil {
			return eris.New(propertyapi.Message(err, "login failed"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", displayName(user))
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		email, _ := cmd.Flags().GetString("email")
		username, _ := cmd.Flags().GetString("username")
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}

		env, err := initApp(ctx, session.ViewSignup)
		if err != nil {
			return err
		}
		defer env.Close()

		user, err := env.Session.Signup(ctx, model.SignupRequest{
			Email:    strings.TrimSpace(email),
			Username: strings.TrimSpace(username),
			Password: password,
		})
		if err != nil {
			return eris.New(propertyapi.Message(err, "signup failed"))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Account created. Signed in as %s.\n", displayName(user))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initApp(cmd.Context(), cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account and remaining quota",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.requireUser(ctx); err != nil {
			return err
		}
		user := env.Session.User()
		format, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd.OutOrStdout(), format, user, func(w io.Writer) error {
			return printUser(w, user)
		})
	},
}

func printUser(w io.Writer, u *model.User) error {
	fmt.Fprintf(w, "User:      %s\n", displayName(u))
	fmt.Fprintf(w, "Email:     %s\n", u.Email)
	plan := u.Plan
	if plan == "" {
		plan = model.PlanFree
	}
	fmt.Fprintf(w, "Plan:      %s\n", plan)
	if u.AnalysesRemaining != nil {
		fmt.Fprintf(w, "Remaining: %d analyses\n", *u.AnalysesRemaining)
	}
	return nil
}

func displayName(u *model.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// passwordFlag returns --password, or reads one line from stdin when the
// flag is "-".
func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "-" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !eris.Is(err, io.EOF) {
			return "", eris.Wrap(err, "read password")
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", eris.New("password is required")
	}
	return password, nil
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", `account password ("-" reads it from stdin)`)
	_ = loginCmd.MarkFlagRequired("email")

	signupCmd.Flags().String("email", "", "account email")
	signupCmd.Flags().String("username", "", "display name")
	signupCmd.Flags().String("password", "", `account password ("-" reads it from stdin)`)
	_ = signupCmd.MarkFlagRequired("email")
	_ = signupCmd.MarkFlagRequired("username")

	whoamiCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)
}
