//go:build !unix

package main

import "errors"

func reexec() error {
	return errors.New("restart requested: re-exec is not supported on this platform, start the service again")
}
