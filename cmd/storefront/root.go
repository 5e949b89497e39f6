package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klwxsrx/storefront-console/internal/config"
	"github.com/klwxsrx/storefront-console/internal/guard"
	"github.com/klwxsrx/storefront-console/internal/pkg/cmd"
	pkgcmd "github.com/klwxsrx/storefront-console/pkg/cmd"
)

type app struct {
	container *cmd.Container
}

func buildRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Storefront console session client",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}

			hook := cmd.NewStderrSessionExpiredHook(c.ErrOrStderr(), guard.DefaultPaths().Login)
			a.container = cmd.NewContainer(c.Context(), cfg, hook)
			return nil
		},
	}

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.activateCmd(),
		a.resendOTPCmd(),
		a.logoutCmd(),
		a.refreshCmd(),
		a.whoamiCmd(),
		a.navigateCmd(),
		a.dashboardCmd(),
		a.keepaliveCmd(),
	)

	return root, a
}

func (a *app) close(ctx context.Context) {
	if a.container != nil {
		a.container.Close(ctx)
	}
}

// run wraps a command body with the panic handler of the loaded logger.
func (a *app) run(body func(c *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		defer pkgcmd.HandleAppPanic(c.Context(), a.container.Logger.MustLoad())
		return body(c, args)
	}
}

func printf(c *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(c.OutOrStdout(), format, args...)
}
