// SPDX-License-Identifier: MPL-2.0

// Package varexpand substitutes shell-style variable references in
// configuration text.
//
// Three forms are recognized: ${NAME:-default}, ${NAME} and bare $NAME.
// Defaults are realized even when no variables are supplied, so that a
// fragment written for on-device expansion still parses as TOML on the
// build host. References to unknown variables are left untouched so a later
// parse step can point at them.
package varexpand
