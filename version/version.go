// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package version holds the build version of the operator agent.
package version

import (
	semversion "github.com/juju/version/v2"
)

// The format of this constant must stay parseable by juju/version;
// the release tooling rewrites it when cutting a release.
const version = "1.0.2"

// Current holds the version of the running operator agent.
var Current = semversion.MustParse(version)
