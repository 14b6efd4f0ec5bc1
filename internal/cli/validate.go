// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keymgmt.
//
// go-keymgmt is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateSelection string

// validateCmd imports a key parameter file and runs the family's
// consistency checks on it
var validateCmd = &cobra.Command{
	Use:   "validate <key-file>",
	Short: "Validate a key parameter file",
	Long: `Import the parameters in a key file written by generate and run
the algorithm family's validation checks against them: key sizes, group
and curve membership, and public/private pairwise consistency when both
halves are present.

Examples:
  keymgmt generate RSA --show-private -o yaml > rsa.yaml
  keymgmt validate rsa.yaml
  keymgmt validate rsa.yaml --selection public-key`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := getConfig().CreateRegistry()
		if err != nil {
			handleError(err)
		}

		km, key, selection, err := importKeyFile(registry, args[0], validateSelection)
		if err != nil {
			handleError(err)
		}
		defer km.Free(key)

		if err := km.Validate(key, selection); err != nil {
			handleError(err)
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		err = printer.PrintSuccess(fmt.Sprintf("%s key is valid for selection %s",
			km.Algorithm(), selection))
		if err != nil {
			handleError(err)
		}
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateSelection, "selection", "s", "",
		"selection to validate (default: inferred from the file)")
}
