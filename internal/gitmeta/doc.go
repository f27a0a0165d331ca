// SPDX-License-Identifier: MPL-2.0

// Package gitmeta looks up which git repository a file belongs to, the
// commit checked out there and the file's working tree status. The result
// only decorates the banners of a combined configuration.
package gitmeta
