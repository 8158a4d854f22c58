package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored token and patient profile",
	}
	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsShowCmd())
	return cmd
}

var profileFlags = []string{
	"name", "surname", "identity-number", "phone-number",
	"father-name", "birth-year", "birth-date", "gender",
}

func profileFields(c *appointment.Credentials) map[string]*appointment.Scalar {
	return map[string]*appointment.Scalar{
		"name":            &c.Name,
		"surname":         &c.Surname,
		"identity-number": &c.IdentityNumber,
		"phone-number":    &c.PhoneNumber,
		"father-name":     &c.FatherName,
		"birth-year":      &c.BirthYear,
		"birth-date":      &c.BirthDate,
		"gender":          &c.Gender,
	}
}

func newCredentialsSetCmd() *cobra.Command {
	var fromFile, token string
	values := map[string]*string{}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the stored credentials record",
		Long: "Replace the stored credentials record, either from a JSON file holding the\n" +
			"record (--from-file) or from flags. Flags override values read from the file.\n" +
			"Values read from the file keep their JSON types. A flag value that is a JSON\n" +
			"number, true, false or a quoted string keeps that type; anything else is a string.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var rec appointment.Credentials
			if fromFile != "" {
				b, err := os.ReadFile(fromFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(b, &rec); err != nil {
					return fmt.Errorf("%s: %w", fromFile, err)
				}
			}
			if cmd.Flags().Changed("token") {
				rec.Token = token
			}
			for name, dst := range profileFields(&rec) {
				if cmd.Flags().Changed(name) {
					*dst = appointment.ParseScalar(*values[name])
				}
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.creds.Put(ctx, rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored credentials in %s store\n", a.cfg.CredentialsStore)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFile, "from-file", "", "JSON file holding the record")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	for _, name := range profileFlags {
		values[name] = cmd.Flags().String(name, "", "profile field "+name)
	}
	return cmd
}

func newCredentialsShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored credentials record (token redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.creds.Lookup(ctx)
			if err != nil {
				return err
			}
			if !reveal {
				c = c.Redacted()
			}
			b, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the token in full")
	return cmd
}
