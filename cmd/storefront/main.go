package main

import (
	"context"
	"os"

	"github.com/klwxsrx/storefront-console/pkg/sig"
)

func main() {
	ctx, stop := sig.TermContext(context.Background())
	root, a := buildRootCmd()
	err := root.ExecuteContext(ctx)
	a.close(context.WithoutCancel(ctx))
	stop()
	if err != nil {
		os.Exit(1)
	}
}
