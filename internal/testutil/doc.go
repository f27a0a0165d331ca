// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include file tree setup (WriteFiles, MustReadFile),
// environment variable management (MustSetenv, MustUnsetenv) and directory
// operations (MustChdir, MustMkdirAll).
package testutil
