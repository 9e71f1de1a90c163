// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the hasher binaries.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the HASHER_CONFIG environment variable (via
// [Load]). There is no automatic file search: without either, the
// binaries run on [Default] and nothing else. Environment variables
// never override individual values.
//
// Files ending in .json or .jsonc are accepted as well as YAML;
// comments and trailing commas are stripped with github.com/tidwall/jsonc
// before decoding. Byte sizes may be written as integers or as
// human-readable strings ("256KiB", "16 MB"); durations use Go syntax
// ("250ms", "30s").
//
// After loading, ${HOME} and ${VAR:-default} patterns are expanded in
// path fields, and [Config.Validate] reports every invalid value at
// once.
//
// This package depends on no other hasher packages.
package config
