// Package main is the entry point for the pkgmcp server.
//
// pkgmcp serves package-management and code-standards tooling over the Model
// Context Protocol, on stdio for local clients or streamable HTTP for remote
// ones. Run "pkgmcp --help" for the available commands.
package main

import (
	"context"
	"os"

	"pkgmcp/internal/console"
)

func main() {
	root := newRootCmd(newApp(os.Stdin, os.Stdout, os.Stderr))
	if err := root.ExecuteContext(context.Background()); err != nil {
		console.New(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}
