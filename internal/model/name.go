package model

import "strings"

const maxProfileNameLen = 100

// ValidateProfileName checks that name can key every backend, including a
// file name on disk. Names starting with "." are reserved for the local
// store's own files.
func ValidateProfileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return Invalid("profile name", "must not be blank")
	case len(name) > maxProfileNameLen:
		return Invalid("profile name", "too long")
	case strings.HasPrefix(name, "."):
		return Invalid("profile name", "must not start with \".\"")
	case strings.ContainsAny(name, "/\\\x00"):
		return Invalid("profile name", "must not contain path separators")
	}
	return nil
}
