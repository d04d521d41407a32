// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package core holds pure domain concepts shared across the operator:
relation data, workload status and declared service ports.

Be aware what should *not* go here:

  - anything that touches the filesystem or the workload runtime
  - anything concerned with serialization of state files

Subpackages of core may import each other, but never any other package
in this module, and must not hold mutable global state.
*/
package core
