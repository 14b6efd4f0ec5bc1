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
	"errors"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ffc"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/rsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// errPrivateWithheld is returned when the requested selection holds only
// private key material and --show-private was not given
var errPrivateWithheld = errors.New("cli: selection contains only private key material; pass --show-private to print it")

var (
	generateSelection   string
	generateBits        int
	generatePrimes      int
	generateExponent    uint64
	generateCurve       string
	generatePBits       int
	generateQBits       int
	generateShowPrivate bool
	generateValidate    bool
)

// generateCmd generates a new key and prints its exported parameters
var generateCmd = &cobra.Command{
	Use:   "generate <algorithm>",
	Short: "Generate a key",
	Long: `Generate a new key or parameter set for an algorithm family and
print the exported parameters. Private key material is withheld unless
--show-private is given.

Examples:
  keymgmt generate RSA --bits 3072
  keymgmt generate EC --curve P-384
  keymgmt generate DSA --selection all-parameters
  keymgmt generate ED25519 --show-private -o yaml`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var name string
		if len(args) > 0 {
			name = args[0]
		}

		registry, err := getConfig().CreateRegistry()
		if err != nil {
			handleError(err)
		}
		km, err := getConfig().ResolveAlgorithm(registry, name)
		if err != nil {
			handleError(err)
		}

		selection, err := ParseSelection(generateSelection)
		if err != nil {
			handleError(err)
		}

		key, err := generateKey(cmd, km, selection)
		if err != nil {
			handleError(err)
		}
		defer km.Free(key)

		if generateValidate {
			if err := km.Validate(key, selection); err != nil {
				handleError(err)
			}
			printVerbose("%s key validated", km.Algorithm())
		}

		exportSel := selection
		if !generateShowPrivate {
			exportSel &^= keymgmt.SelectPrivateKey
		}
		if exportSel == 0 {
			handleError(errPrivateWithheld)
		}

		var exported params.Params
		err = km.Export(key, exportSel, func(ps params.Params) error {
			exported = ps
			return nil
		})
		if err != nil {
			handleError(err)
		}

		printer := NewPrinter(getConfig().OutputFormat, os.Stdout)
		if err := printer.PrintKeyParams(string(km.Algorithm()), exported); err != nil {
			handleError(err)
		}
	},
}

// generateKey runs the generation state machine with parameters merged
// from flags and the configuration file.
func generateKey(cmd *cobra.Command, km keymgmt.KeyManager, selection keymgmt.Selection) (keymgmt.Key, error) {
	cfg, err := getConfig().Load()
	if err != nil {
		return nil, err
	}

	genCtx, err := km.NewGeneration(selection)
	if err != nil {
		return nil, err
	}
	defer genCtx.Close()

	ps := params.Params{}
	settable := km.GenSettableParams()

	bits := cfg.Generation.RSA.Bits
	if cmd.Flags().Changed("bits") {
		bits = generateBits
	}
	if settable.Contains(rsa.GenParamBits) && bits > 0 {
		ps = append(ps, params.NewInt(rsa.GenParamBits, int64(bits)))
	}

	primes := cfg.Generation.RSA.Primes
	if cmd.Flags().Changed("primes") {
		primes = generatePrimes
	}
	if settable.Contains(rsa.GenParamPrimes) && primes > 0 {
		ps = append(ps, params.NewInt(rsa.GenParamPrimes, int64(primes)))
	}

	if cmd.Flags().Changed("exponent") && settable.Contains(rsa.GenParamE) {
		ps = append(ps, params.NewUint(rsa.GenParamE, new(big.Int).SetUint64(generateExponent)))
	}

	curve := cfg.Generation.EC.Curve
	if cmd.Flags().Changed("curve") {
		curve = generateCurve
	}
	if settable.Contains(keymgmt.ParamCurveName) && curve != "" {
		ps = append(ps, params.NewString(keymgmt.ParamCurveName, curve))
	}

	pbits := cfg.Generation.FFC.PBits
	if cmd.Flags().Changed("pbits") {
		pbits = generatePBits
	}
	if settable.Contains(ffc.GenParamPBits) && pbits > 0 {
		ps = append(ps, params.NewInt(ffc.GenParamPBits, int64(pbits)))
	}

	qbits := cfg.Generation.FFC.QBits
	if cmd.Flags().Changed("qbits") {
		qbits = generateQBits
	}
	if settable.Contains(ffc.GenParamQBits) && qbits > 0 {
		ps = append(ps, params.NewInt(ffc.GenParamQBits, int64(qbits)))
	}

	if len(ps) > 0 {
		if err := genCtx.SetParams(ps); err != nil {
			return nil, err
		}
	}

	logger := getConfig().Logger()
	logger.Debug("generating key", "algorithm", km.Algorithm(), "selection", selection.String())

	return genCtx.Generate(logger.Progress(km.Algorithm()))
}

func init() {
	generateCmd.Flags().StringVarP(&generateSelection, "selection", "s", "keypair",
		"selection to generate (comma-separated subset names)")
	generateCmd.Flags().IntVar(&generateBits, "bits", 0,
		"RSA modulus size in bits")
	generateCmd.Flags().IntVar(&generatePrimes, "primes", 0,
		"RSA prime count (2-10)")
	generateCmd.Flags().Uint64Var(&generateExponent, "exponent", 0,
		"RSA public exponent")
	generateCmd.Flags().StringVar(&generateCurve, "curve", "",
		"EC curve name (P-224, P-256, P-384, P-521, secp256k1)")
	generateCmd.Flags().IntVar(&generatePBits, "pbits", 0,
		"DSA/DH prime modulus size in bits")
	generateCmd.Flags().IntVar(&generateQBits, "qbits", 0,
		"DSA/DH subgroup order size in bits")
	generateCmd.Flags().BoolVar(&generateShowPrivate, "show-private", false,
		"include private key material in the output")
	generateCmd.Flags().BoolVar(&generateValidate, "validate", false,
		"validate the generated key before printing")
}
