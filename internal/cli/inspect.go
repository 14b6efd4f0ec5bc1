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
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

var (
	inspectSelection   string
	inspectShowPrivate bool
)

// inspectCmd imports a key parameter file and prints the key's sizes and
// public parameters
var inspectCmd = &cobra.Command{
	Use:   "inspect <key-file>",
	Short: "Inspect a key parameter file",
	Long: `Import the parameters in a key file written by generate and print
the reconstructed key's size information and parameters. Private key
material is withheld unless --show-private is given.

Examples:
  keymgmt generate EC -o yaml > ec.yaml
  keymgmt inspect ec.yaml
  keymgmt inspect ec.yaml -o json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := getConfig().CreateRegistry()
		if err != nil {
			handleError(err)
		}

		km, key, selection, err := importKeyFile(registry, args[0], inspectSelection)
		if err != nil {
			handleError(err)
		}
		defer km.Free(key)

		sizes := params.Params{
			params.Request(keymgmt.ParamBits, params.KindInteger),
			params.Request(keymgmt.ParamMaxSize, params.KindInteger),
			params.Request(keymgmt.ParamSecurityBits, params.KindInteger),
		}
		if err := km.GetParams(key, sizes); err != nil {
			handleError(err)
		}

		exportSel := selection
		if !inspectShowPrivate {
			exportSel &^= keymgmt.SelectPrivateKey
		}
		if exportSel == 0 {
			handleError(errPrivateWithheld)
		}

		var exported params.Params
		err = km.Export(key, exportSel, func(ps params.Params) error {
			exported = append(params.Params{}, ps...)
			return nil
		})
		if err != nil {
			handleError(err)
		}
		exported = append(exported, sizes...)

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintKeyParams(string(km.Algorithm()), exported); err != nil {
			handleError(err)
		}
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectSelection, "selection", "s", "",
		"selection to import (default: inferred from the file)")
	inspectCmd.Flags().BoolVar(&inspectShowPrivate, "show-private", false,
		"include private key material in the output")
}
