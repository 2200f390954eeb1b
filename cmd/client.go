package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/regform/internal/presentation"
	"github.com/zjrosen/regform/internal/registration"
)

var outputFormat string

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Print the country list",
	Long: `Fetch GET /countries and print the result.

Examples:
  regform countries
  regform countries -o json | jq '.[].code'`,
	Args: cobra.NoArgs,
	RunE: runCountries,
}

var checkCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Check whether a username is available",
	Long: `Validate a username with the form rules and, if it is valid, look it up
in GET /register.

Examples:
  regform check alice
  regform check alice -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <country>",
	Short: "Register a username for a country",
	Long: `Validate the pair with the form rules and submit it with POST /register.
The country is a code from 'regform countries'.

Examples:
  regform register alice FR`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	for _, c := range []*cobra.Command{countriesCmd, checkCmd, registerCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")
		rootCmd.AddCommand(c)
	}
}

// withSession runs fn against a session talking to the configured API.
func withSession(cmd *cobra.Command, fn func(*registration.Session, *presentation.Formatter) error) error {
	format, err := presentation.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	cleanupLog, err := setupLogging("regform-" + cmd.Name())
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, err := setupTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing(provider)

	client, err := newClient(provider)
	if err != nil {
		return err
	}
	session := newSession(client, provider)
	defer session.Close()

	return fn(session, presentation.NewFormatter(cmd.OutOrStdout(), format))
}

func runCountries(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(s *registration.Session, f *presentation.Formatter) error {
		countries, err := s.LoadCountries(cmd.Context())
		if err != nil {
			return err
		}
		return f.FormatCountries(presentation.FromDomainCountries(countries))
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	username := args[0]
	return withSession(cmd, func(s *registration.Session, f *presentation.Formatter) error {
		if err := s.SetUsername(username); err != nil {
			return err
		}
		if err := fieldErrors(s.State()); err != nil {
			return err
		}
		availability, err := s.CheckAvailability(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking %q: %w", username, err)
		}
		return f.FormatAvailability(presentation.FromAvailability(username, availability))
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	username, country := args[0], args[1]
	return withSession(cmd, func(s *registration.Session, f *presentation.Formatter) error {
		if err := s.SetUsername(username); err != nil {
			return err
		}
		if err := s.SetCountry(country); err != nil {
			return err
		}
		reg, err := s.Submit(cmd.Context())
		switch {
		case errors.Is(err, registration.ErrInvalidForm):
			return fieldErrors(s.State())
		case err != nil:
			return fmt.Errorf("%s: %w", registration.FailureMessage, err)
		}
		return f.FormatRegistration(presentation.FromDomainRegistration(reg))
	})
}

// fieldErrors joins the visible field errors of st, or returns nil.
func fieldErrors(st registration.State) error {
	if len(st.FieldErrors) == 0 {
		return nil
	}
	fields := make([]string, 0, len(st.FieldErrors))
	for field := range st.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, st.FieldErrors[field])
	}
	return errors.New(strings.Join(msgs, " "))
}
