package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/klwxsrx/storefront-console/internal/storefront"
)

var errNavigationDenied = errors.New("navigation denied")

func (a *app) navigateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Check whether the current session may open a console page",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(c *cobra.Command, args []string) error {
			router, err := a.container.Router.Load()
			if err != nil {
				return err
			}

			decision := router.Navigate(c.Context(), args[0])
			if !decision.Allowed {
				printf(c, "redirect to %s\n", decision.Redirect)
				return errNavigationDenied
			}

			printf(c, "allowed\n")
			return nil
		}),
	}
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the admin dashboard counters",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			router, err := a.container.Router.Load()
			if err != nil {
				return err
			}
			decision := router.Navigate(c.Context(), "/admin")
			if !decision.Allowed {
				printf(c, "redirect to %s\n", decision.Redirect)
				return errNavigationDenied
			}

			client, err := a.container.Storefront.Load()
			if err != nil {
				return err
			}

			dashboard, err := client.Dashboard(c.Context())
			printf(c, "users: %s\nproducts: %s\ncategories: %s\n",
				counter(dashboard.Users), counter(dashboard.Products), counter(dashboard.Categories))
			if errors.Is(err, storefront.ErrUnauthorized) {
				printf(c, "redirect to %s\n", router.Paths().Login)
			}
			return err
		}),
	}
}

func counter(n *int64) string {
	if n == nil {
		return "-"
	}

	return strconv.FormatInt(*n, 10)
}
