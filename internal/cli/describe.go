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
)

var describeSelection string

// describeCmd prints the parameter descriptors for an algorithm
var describeCmd = &cobra.Command{
	Use:   "describe <algorithm>",
	Short: "Describe an algorithm's parameters",
	Long: `Describe the parameters an algorithm family recognizes: the
gettable and settable key parameters, the generation parameters, and
the import/export types for a selection.

Selections are comma-separated subset names:
  private-key, public-key, domain-parameters, other-parameters,
  keypair, all-parameters, all`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := getConfig().CreateRegistry()
		if err != nil {
			handleError(err)
		}

		km, err := getConfig().ResolveAlgorithm(registry, args[0])
		if err != nil {
			handleError(err)
		}

		selection, err := ParseSelection(describeSelection)
		if err != nil {
			handleError(err)
		}

		table := DescriptorTable{
			Algorithm:   string(km.Algorithm()),
			Selection:   selection.String(),
			Gettable:    km.GettableParams(),
			Settable:    km.SettableParams(),
			GenSettable: km.GenSettableParams(),
			ImportTypes: km.ImportTypes(selection),
			ExportTypes: km.ExportTypes(selection),
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintDescriptorTable(table); err != nil {
			handleError(err)
		}
	},
}

func init() {
	describeCmd.Flags().StringVarP(&describeSelection, "selection", "s", "all",
		"selection for import/export types (comma-separated subset names)")
}
