package options

import "github.com/DevSingh98/mysql-shell/internal/shellerr"

// Dialect is the field/line format shared by the Dump Writer and the
// importer's LOAD DATA statements.
type Dialect struct {
	Name                string // "default", "csv", "tsv", "csv-unix", "json" (import only)
	FieldsTerminatedBy  string
	FieldsEnclosedBy    string
	FieldsOptEnclosed   bool
	FieldsEscapedBy     string
	LinesTerminatedBy   string
}

var namedDialects = map[string]Dialect{
	"default": {
		Name:               "default",
		FieldsTerminatedBy: "\t",
		FieldsEscapedBy:    "\\",
		LinesTerminatedBy:  "\n",
	},
	"csv": {
		Name:               "csv",
		FieldsTerminatedBy: ",",
		FieldsEnclosedBy:   `"`,
		FieldsOptEnclosed:  true,
		FieldsEscapedBy:    "\\",
		LinesTerminatedBy:  "\r\n",
	},
	"tsv": {
		Name:               "tsv",
		FieldsTerminatedBy: "\t",
		FieldsEnclosedBy:   `"`,
		FieldsOptEnclosed:  true,
		FieldsEscapedBy:    "\\",
		LinesTerminatedBy:  "\r\n",
	},
	"csv-unix": {
		Name:               "csv-unix",
		FieldsTerminatedBy: ",",
		FieldsEnclosedBy:   `"`,
		FieldsEscapedBy:    "\\",
		LinesTerminatedBy:  "\n",
	},
	"json": {
		Name:              "json",
		LinesTerminatedBy: "\n",
	},
}

// ResolveDialect returns the named dialect's defaults, or an ArgumentError
// if name is not one of default/csv/tsv/csv-unix (json is import-only).
func ResolveDialect(name string, allowJSON bool) (Dialect, error) {
	if name == "" {
		name = "default"
	}
	d, ok := namedDialects[name]
	if !ok || (name == "json" && !allowJSON) {
		return Dialect{}, shellerr.New(shellerr.ArgumentError, "unknown dialect "+name)
	}
	return d, nil
}

// Override applies non-empty fields from override onto the dialect's
// defaults (explicit options override the dialect preset, per spec).
func (d Dialect) Override(override Dialect) Dialect {
	out := d
	if override.FieldsTerminatedBy != "" {
		out.FieldsTerminatedBy = override.FieldsTerminatedBy
	}
	if override.FieldsEnclosedBy != "" {
		out.FieldsEnclosedBy = override.FieldsEnclosedBy
	}
	if override.FieldsEscapedBy != "" {
		out.FieldsEscapedBy = override.FieldsEscapedBy
	}
	if override.LinesTerminatedBy != "" {
		out.LinesTerminatedBy = override.LinesTerminatedBy
	}
	out.FieldsOptEnclosed = override.FieldsOptEnclosed || d.FieldsOptEnclosed
	return out
}
