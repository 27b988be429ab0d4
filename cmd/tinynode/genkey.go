package main

import (
	"fmt"

	"gopkg.in/urfave/cli.v1"

	"github.com/tinynode/tinynode/internal/wallet"
)

// genkeyAction generates a fresh Ed25519 keypair and writes its raw seed
// to --out, usable as either a validator.private_key_path or a wallet
// signing key (spec.md §6: the two key file formats are identical).
func genkeyAction(c *cli.Context) error {
	key, err := wallet.Generate()
	if err != nil {
		return walletErr(err)
	}
	path := c.String(keyOutFlag.Name)
	if err := key.Save(path); err != nil {
		return walletErr(err)
	}
	fmt.Fprintf(c.App.Writer, "wrote key to %s\naddress: %s\n", path, key.Address())
	return nil
}
