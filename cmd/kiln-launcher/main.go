// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// kiln-launcher is the run-time half of the launcher shebang
// strategy. Relocated scripts are symlinks to this binary, with the
// real script parked next to them at "<name>.real". When invoked, it
// resolves the interpreter reference embedded in the real script's
// shebang — profile interpreter first, artifact-relative fallback
// second — and replaces itself with that interpreter.
package main

import (
	"fmt"
	"os"
	"syscall"
)

// exit code 127 matches the shell convention for "command not
// found", which is what a missing interpreter amounts to.
const exitNotFound = 127

func main() {
	invocation, err := Resolve(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "kiln-launcher: %v\n", err)
		os.Exit(exitNotFound)
	}

	err = syscall.Exec(invocation.Interpreter, invocation.Argv, os.Environ())
	// Exec only returns on failure.
	fmt.Fprintf(os.Stderr, "kiln-launcher: exec %s: %v\n", invocation.Interpreter, err)
	os.Exit(exitNotFound)
}
