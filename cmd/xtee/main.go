// Command xtee runs the key derivation and trusted UI conformance cases
// against a secure environment and reports their outcome.
//
//	xtee list
//	xtee run --backend soft --slow
//	xtee run --backend hsm --hsm-module /usr/lib/softhsm/libsofthsm2.so --hsm-label xtee --hsm-user-pin 1234
//
// Every flag can also be set in a yaml config file (--config, default
// ./xtee.yaml or $HOME/xtee.yaml) or through XTEE_ prefixed environment
// variables, for example XTEE_HSM_USER_PIN.
package main

import (
	"os"

	"github.com/awnumar/memguard"
)

func main() {
	memguard.CatchInterrupt()

	code := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)

	// os.Exit skips deferred calls
	memguard.Purge()
	os.Exit(code)
}
