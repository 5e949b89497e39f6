package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klwxsrx/storefront-console/internal/session"
)

const passwordEnv = "STOREFRONT_PASSWORD"

var errRejected = errors.New("request rejected")

func (a *app) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			current, err := s.Login(c.Context(), session.Credentials{
				Username: username,
				Password: passwordOrEnv(password),
			})
			if err != nil {
				return err
			}

			printf(c, "logged in as %s, roles: %s\n", username, strings.Join(current.Roles, ","))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password, defaults to $"+passwordEnv)
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var registration session.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account, an activation code is sent to the email",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			registration.Password = passwordOrEnv(registration.Password)
			result, err := s.Register(c.Context(), registration)
			return printResult(c, result, err)
		}),
	}
	cmd.Flags().StringVarP(&registration.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&registration.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&registration.Password, "password", "p", "", "account password, defaults to $"+passwordEnv)
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (a *app) activateCmd() *cobra.Command {
	var email, otp string
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate an account with the emailed code",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			result, err := s.Activate(c.Context(), email, otp)
			return printResult(c, result, err)
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&otp, "otp", "", "activation code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")

	return cmd
}

func (a *app) resendOTPCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resend-otp",
		Short: "Send a new activation code",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			result, err := s.ResendActivationCode(c.Context(), email)
			return printResult(c, result, err)
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and drop the stored tokens",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			s.Logout(c.Context())
			printf(c, "logged out\n")
			return nil
		}),
	}
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			current, err := s.Refresh(c.Context())
			if err != nil {
				return err
			}

			printf(c, "session refreshed, expires at %s\n", expiry(current))
			return nil
		}),
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}

			current, ok := s.Current(c.Context())
			if !ok {
				printf(c, "anonymous\n")
				return nil
			}

			var subject string
			if current.SubjectID != nil {
				subject = fmt.Sprint(*current.SubjectID)
			}
			printf(c, "subject: %s\nroles: %s\nexpires at: %s\n", subject, strings.Join(current.Roles, ","), expiry(current))
			if !remote {
				return nil
			}

			client, err := a.container.Storefront.Load()
			if err != nil {
				return err
			}
			user, err := client.CurrentUser(c.Context())
			if err != nil {
				return err
			}

			printf(c, "username: %s\nemail: %s\nname: %s %s\nstatus: %s\n", user.Username, user.Email, user.FirstName, user.LastName, user.Status)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "also load the user profile from the api")

	return cmd
}

func printResult(c *cobra.Command, result session.Result, err error) error {
	if err != nil {
		return err
	}

	printf(c, "%s\n", result.Message)
	fields := make([]string, 0, len(result.FieldErrors))
	for field := range result.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		printf(c, "  %s: %s\n", field, result.FieldErrors[field])
	}

	if !result.Success {
		return errRejected
	}
	return nil
}

func passwordOrEnv(password string) string {
	if password != "" {
		return password
	}

	return os.Getenv(passwordEnv)
}

func expiry(s session.Session) string {
	if s.ExpiresAt == nil {
		return "never"
	}

	return s.ExpiresAt.Local().Format("2006-01-02 15:04:05")
}
