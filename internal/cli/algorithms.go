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

// algorithmsCmd lists the registered algorithm families
var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List registered algorithms",
	Long:  `List every registered algorithm family with its operations and capabilities`,
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := getConfig().CreateRegistry()
		if err != nil {
			handleError(err)
		}

		infos := make([]AlgorithmInfo, 0)
		for _, alg := range registry.Algorithms() {
			km, err := registry.Get(alg)
			if err != nil {
				handleError(err)
			}
			infos = append(infos, NewAlgorithmInfo(km))
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintAlgorithmList(infos); err != nil {
			handleError(err)
		}
	},
}
