package config

import (
	"github.com/hashicorp/hcl2/gohcl"
	"github.com/hashicorp/hcl2/hclparse"
)

// File is the shape of an optional HCL2 bootstrap-defaults file, the same
// role the teacher's Config struct plays for its upstream path map,
// re-themed to the control plane's own bootstrap knobs.
type File struct {
	Socket  *string `hcl:"socket"`
	IPScope *string `hcl:"ipscope"`
	Cfgtool *bool   `hcl:"cfgtool"`
	Socsafe *bool   `hcl:"socsafe"`
}

// ParseFile reads and decodes filename as an HCL2 File.
func ParseFile(filename string) (File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(filename)
	if len(diags) != 0 {
		return File{}, diags
	}

	var file File
	decodeDiags := gohcl.DecodeBody(f.Body, nil, &file)
	diags = append(diags, decodeDiags...)
	if diags.HasErrors() {
		return File{}, diags
	}

	return file, nil
}

// applyTo layers f's set fields onto args, to be further overridden by
// any CLI flag the caller explicitly passed.
func (f File) applyTo(args *Args) {
	if f.Socket != nil {
		args.Socket = *f.Socket
	}
	if f.IPScope != nil {
		args.IPScope = splitNonEmpty(*f.IPScope)
	}
	if f.Cfgtool != nil {
		args.Cfgtool = *f.Cfgtool
	}
	if f.Socsafe != nil {
		args.Socsafe = *f.Socsafe
	}
}
