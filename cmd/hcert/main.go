// hcert is a command line tool for encoding and decoding HC1 tokens and verifying trust lists.
package main

import "github.com/ehn-dcc-development/hcert-service/internal/cli"

func main() {
	cli.Execute()
}
