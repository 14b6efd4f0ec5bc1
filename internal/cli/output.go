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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// AlgorithmInfo describes a registered algorithm for listing output
type AlgorithmInfo struct {
	Algorithm    string   `json:"algorithm" yaml:"algorithm"`
	Operations   []string `json:"operations,omitempty" yaml:"operations,omitempty"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}

// NewAlgorithmInfo collects listing information from a key manager
func NewAlgorithmInfo(km keymgmt.KeyManager) AlgorithmInfo {
	caps := km.Capabilities()
	info := AlgorithmInfo{
		Algorithm: string(km.Algorithm()),
	}
	for _, op := range []keymgmt.Operation{
		keymgmt.OperationSignature,
		keymgmt.OperationKeyExchange,
		keymgmt.OperationAsymCipher,
	} {
		if name := km.OperationName(op); name != "" {
			info.Operations = append(info.Operations, name)
		}
	}
	for name, enabled := range map[string]bool{
		"create":     caps.Create,
		"generate":   caps.Generate,
		"get-params": caps.GetParams,
		"set-params": caps.SetParams,
		"import":     caps.Import,
		"export":     caps.Export,
		"copy":       caps.Copy,
		"validate":   caps.Validate,
		"match":      caps.Match,
	} {
		if enabled {
			info.Capabilities = append(info.Capabilities, name)
		}
	}
	sort.Strings(info.Capabilities)
	return info
}

// PrintAlgorithmList prints the registered algorithms
func (p *Printer) PrintAlgorithmList(infos []AlgorithmInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"algorithms": infos,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"algorithms": infos,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, "Registered Algorithms:")
		for _, info := range infos {
			fmt.Fprintf(p.writer, "  - %s", info.Algorithm)
			if len(info.Operations) > 0 {
				fmt.Fprintf(p.writer, " (%s)", strings.Join(info.Operations, ", "))
			}
			fmt.Fprintln(p.writer)
			fmt.Fprintf(p.writer, "      capabilities: %s\n", strings.Join(info.Capabilities, ", "))
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// DescriptorTable groups one manager's parameter descriptors by query
type DescriptorTable struct {
	Algorithm   string
	Selection   string
	Gettable    params.Descriptors
	Settable    params.Descriptors
	GenSettable params.Descriptors
	ImportTypes params.Descriptors
	ExportTypes params.Descriptors
}

// descriptorView is the serializable form of a parameter descriptor
type descriptorView struct {
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind" yaml:"kind"`
	Settable  bool   `json:"settable" yaml:"settable"`
	Gettable  bool   `json:"gettable" yaml:"gettable"`
	Mandatory bool   `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
}

type descriptorTableView struct {
	Algorithm   string           `json:"algorithm" yaml:"algorithm"`
	Selection   string           `json:"selection,omitempty" yaml:"selection,omitempty"`
	Gettable    []descriptorView `json:"gettable,omitempty" yaml:"gettable,omitempty"`
	Settable    []descriptorView `json:"settable,omitempty" yaml:"settable,omitempty"`
	GenSettable []descriptorView `json:"gen_settable,omitempty" yaml:"gen_settable,omitempty"`
	ImportTypes []descriptorView `json:"import_types,omitempty" yaml:"import_types,omitempty"`
	ExportTypes []descriptorView `json:"export_types,omitempty" yaml:"export_types,omitempty"`
}

func viewDescriptors(descs params.Descriptors) []descriptorView {
	if len(descs) == 0 {
		return nil
	}
	views := make([]descriptorView, len(descs))
	for i, d := range descs {
		views[i] = descriptorView{
			Name:      d.Name,
			Kind:      d.Kind.String(),
			Settable:  d.Settable,
			Gettable:  d.Gettable,
			Mandatory: d.Mandatory,
		}
	}
	return views
}

// PrintDescriptorTable prints a manager's parameter descriptors
func (p *Printer) PrintDescriptorTable(table DescriptorTable) error {
	view := descriptorTableView{
		Algorithm:   table.Algorithm,
		Selection:   table.Selection,
		Gettable:    viewDescriptors(table.Gettable),
		Settable:    viewDescriptors(table.Settable),
		GenSettable: viewDescriptors(table.GenSettable),
		ImportTypes: viewDescriptors(table.ImportTypes),
		ExportTypes: viewDescriptors(table.ExportTypes),
	}
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(view)
	case OutputFormatYAML:
		return p.printYAML(view)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Algorithm: %s\n", table.Algorithm)
		if table.Selection != "" {
			fmt.Fprintf(p.writer, "Selection: %s\n", table.Selection)
		}
		p.printDescriptors("Gettable", table.Gettable)
		p.printDescriptors("Settable", table.Settable)
		p.printDescriptors("Generation", table.GenSettable)
		p.printDescriptors("Import", table.ImportTypes)
		p.printDescriptors("Export", table.ExportTypes)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func (p *Printer) printDescriptors(title string, descs params.Descriptors) {
	if len(descs) == 0 {
		return
	}
	fmt.Fprintf(p.writer, "%s:\n", title)
	fmt.Fprintf(p.writer, "  %-25s %-18s %s\n", "NAME", "KIND", "FLAGS")
	fmt.Fprintf(p.writer, "  %s\n", strings.Repeat("-", 55))
	for _, d := range descs {
		var flags []string
		if d.Gettable {
			flags = append(flags, "gettable")
		}
		if d.Settable {
			flags = append(flags, "settable")
		}
		if d.Mandatory {
			flags = append(flags, "mandatory")
		}
		fmt.Fprintf(p.writer, "  %-25s %-18s %s\n", d.Name, d.Kind, strings.Join(flags, ","))
	}
}

// PrintKeyParams prints parameters exported from a key object. Octet
// strings and large integers are hex encoded.
func (p *Printer) PrintKeyParams(algorithm string, ps params.Params) error {
	rendered := make(map[string]interface{}, len(ps))
	order := make([]string, 0, len(ps))
	for i := range ps {
		rendered[ps[i].Name] = renderValue(ps[i].Value())
		order = append(order, ps[i].Name)
	}
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"algorithm": algorithm,
			"params":    rendered,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"algorithm": algorithm,
			"params":    rendered,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Algorithm: %s\n", algorithm)
		sort.Strings(order)
		for _, name := range order {
			fmt.Fprintf(p.writer, "  %-20s %v\n", name+":", rendered[name])
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// renderValue converts a parameter value into a printable form
func renderValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *big.Int:
		if val.BitLen() <= 64 {
			return val.String()
		}
		return "0x" + val.Text(16)
	case []byte:
		return hex.EncodeToString(val)
	default:
		return v
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML prints data as YAML
func (p *Printer) printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(p.writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}
