// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/sealed"
)

type keygenParams struct {
	Output string `flag:"output,o" desc:"write the private key to this file (mode 0600) instead of stdout"`
	Force  bool   `flag:"force" desc:"overwrite an existing --output file"`
}

func keygenCommand() *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an archive sealing keypair",
		Description: `Generate an age X25519 keypair for sealing run archives.

The private key goes to stdout or --output; the public key is printed
on stderr. Add the public key to archive.recipients (or pass it with
--recipient) and keep the private key for "decommission report".`,
		Usage: "decommission keygen [--output <path>]",
		Examples: []cli.Example{
			{
				Description: "Write a private key and show its recipient",
				Command:     "decommission keygen -o ~/.config/decommission/archive.key",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return cli.Internal("%w", err)
			}
			defer keypair.Close()

			if params.Output == "" {
				if _, err := fmt.Fprintf(os.Stdout, "%s\n", keypair.PrivateKey.Bytes()); err != nil {
					return cli.Internal("%w", err)
				}
			} else {
				if err := writeKeyFile(params.Output, keypair.PrivateKey.Bytes(), params.Force); err != nil {
					return err
				}
				logger.Info("private key written", "path", params.Output)
			}
			fmt.Fprintf(os.Stderr, "public key: %s\n", keypair.PublicKey)
			return nil
		},
	}
}

func writeKeyFile(path string, key []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, os.ErrExist) {
		return cli.Conflict("%s already exists (pass --force to overwrite)", path)
	} else if err != nil {
		return cli.Internal("%w", err)
	}
	if _, err := fmt.Fprintf(file, "%s\n", key); err != nil {
		file.Close()
		return cli.Internal("%w", err)
	}
	if err := file.Close(); err != nil {
		return cli.Internal("%w", err)
	}
	return nil
}
