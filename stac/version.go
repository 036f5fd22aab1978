// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"slices"

	"golang.org/x/mod/semver"
)

// Version is a supported stac_version value.
type Version string

const (
	V1_0_0      Version = "1.0.0"
	V1_1_0Beta1 Version = "1.1.0-beta.1"
	V1_1_0      Version = "1.1.0"

	// LatestVersion is used by builders and as the default migration target.
	LatestVersion = V1_1_0
)

// supportedVersions is ordered oldest first. Migration edges connect
// neighbours in this list.
var supportedVersions = []Version{V1_0_0, V1_1_0Beta1, V1_1_0}

// SupportedVersions returns the supported versions, oldest first.
func SupportedVersions() []Version {
	return slices.Clone(supportedVersions)
}

// ParseVersion returns the supported version named by s.
func ParseVersion(s string) (Version, error) {
	v := Version(s)
	if !v.Supported() {
		return "", &Error{
			Kind:    KindUnsupportedVersion,
			Path:    "/stac_version",
			Message: "unsupported stac_version " + quote(s),
		}
	}
	return v, nil
}

// Supported reports whether v is one of the supported versions.
func (v Version) Supported() bool {
	return slices.Contains(supportedVersions, v)
}

// Compare orders versions by semantic version precedence.
func (v Version) Compare(o Version) int {
	return semver.Compare("v"+string(v), "v"+string(o))
}

func (v Version) String() string {
	return string(v)
}

// position returns the index of v in the ordered supported list, or -1.
func (v Version) position() int {
	return slices.Index(supportedVersions, v)
}

func quote(s string) string {
	return `"` + s + `"`
}
