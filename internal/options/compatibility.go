package options

import "github.com/DevSingh98/mysql-shell/internal/shellerr"

// CompatibilityFlag names one of the DDL Rewriter's transform switches.
type CompatibilityFlag string

const (
	ForceInnodb           CompatibilityFlag = "force_innodb"
	StripTablespaces      CompatibilityFlag = "strip_tablespaces"
	StripDefiners         CompatibilityFlag = "strip_definers"
	StripRestrictedGrants CompatibilityFlag = "strip_restricted_grants"
	StripInvalidGrants    CompatibilityFlag = "strip_invalid_grants"
	IgnoreWildcardGrants  CompatibilityFlag = "ignore_wildcard_grants"
	SkipInvalidAccounts   CompatibilityFlag = "skip_invalid_accounts"
	CreateInvisiblePKs    CompatibilityFlag = "create_invisible_pks"
	IgnoreMissingPKs      CompatibilityFlag = "ignore_missing_pks"
)

var validCompatibilityFlags = map[CompatibilityFlag]bool{
	ForceInnodb:           true,
	StripTablespaces:      true,
	StripDefiners:         true,
	StripRestrictedGrants: true,
	StripInvalidGrants:    true,
	IgnoreWildcardGrants:  true,
	SkipInvalidAccounts:   true,
	CreateInvisiblePKs:    true,
	IgnoreMissingPKs:      true,
}

// ValidateCompatibility checks each flag against the fixed enumerated set
// and enforces create_invisible_pks/ignore_missing_pks mutual exclusion.
func ValidateCompatibility(flags []CompatibilityFlag) error {
	seenInvisible, seenIgnoreMissing := false, false
	for _, f := range flags {
		if !validCompatibilityFlags[f] {
			return shellerr.New(shellerr.ArgumentError, "unsupported compatibility value: "+string(f))
		}
		if f == CreateInvisiblePKs {
			seenInvisible = true
		}
		if f == IgnoreMissingPKs {
			seenIgnoreMissing = true
		}
	}
	if seenInvisible && seenIgnoreMissing {
		return shellerr.New(shellerr.ArgumentError, "create_invisible_pks and ignore_missing_pks are mutually exclusive")
	}
	return nil
}

// Has reports whether flags contains f.
func Has(flags []CompatibilityFlag, f CompatibilityFlag) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
