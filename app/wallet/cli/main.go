// This program provides the client commands for use with the wallet.
package main

import (
	"github.com/rdchain/node/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
