// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/hasher/cmd/hasher/cli"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/version"
)

// algorithmEntry is one row of the algorithms listing.
type algorithmEntry struct {
	Name    string `json:"name"`
	Key     string `json:"key"`
	HexLen  int    `json:"hex_len"`
	Default bool   `json:"default"`
}

type algorithmsParams struct {
	connectionParams
	cli.JSONOutput
	Remote bool `flag:"remote" desc:"ask hasher-service instead of this binary"`
}

func algorithmsCommand() *cli.Command {
	var params algorithmsParams
	return &cli.Command{
		Name:    "algorithms",
		Summary: "List supported digest algorithms",
		Description: `List the digest algorithms this binary supports, with the record
key each one is reported under and its hex digest length. Defaults are
the algorithms used when -a is not given.

With --remote the list and defaults come from hasher-service.`,
		Usage: "hasher algorithms [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("algorithms", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runAlgorithms(context.Background(), params, os.Stdout)
		},
	}
}

func runAlgorithms(ctx context.Context, params algorithmsParams, stdout io.Writer) error {
	var entries []algorithmEntry
	if params.Remote {
		client, _, err := params.connect()
		if err != nil {
			return err
		}
		var response struct {
			Algorithms []algorithmEntry `json:"algorithms"`
			Defaults   []string         `json:"defaults"`
		}
		if err := client.Call(ctx, "algorithms", nil, &response); err != nil {
			return err
		}
		entries = response.Algorithms
		for i := range entries {
			entries[i].Default = slices.Contains(response.Defaults, entries[i].Name)
		}
	} else {
		cfg, err := params.load()
		if err != nil {
			return err
		}
		for _, algorithm := range digest.Algorithms() {
			entries = append(entries, algorithmEntry{
				Name:    algorithm.String(),
				Key:     algorithm.Key(),
				HexLen:  algorithm.HexLen(),
				Default: slices.Contains(cfg.Engine.DefaultAlgorithms, algorithm.String()),
			})
		}
	}

	if params.OutputJSON {
		return cli.WriteJSON(stdout, entries)
	}
	theme := cli.DefaultTheme
	writer := tabwriter.NewWriter(stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "NAME\tKEY\tHEX\tDEFAULT")
	for _, entry := range entries {
		isDefault := ""
		if entry.Default {
			isDefault = "yes"
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\n", theme.Style(theme.AlgorithmText).Render(entry.Name), entry.Key, entry.HexLen, isDefault)
	}
	return writer.Flush()
}

type configCommandParams struct {
	configParams
}

func configCommand() *cli.Command {
	var params configCommandParams
	return &cli.Command{
		Name:    "config",
		Summary: "Print the effective configuration",
		Description: `Print the configuration hasher and hasher-service would run with, as
YAML: built-in defaults merged with the file named by --config or
$HASHER_CONFIG, after environment variable expansion. The output is a
valid configuration file.`,
		Usage: "hasher config [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("config", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runConfig(params, os.Stdout)
		},
	}
}

func runConfig(params configCommandParams, stdout io.Writer) error {
	cfg, err := params.load()
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return encoder.Close()
}

type versionParams struct {
	cli.JSONOutput
	Digest bool `flag:"digest" desc:"also print the BLAKE3 digest of this binary"`
}

func versionCommand() *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Usage:   "hasher version [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(args []string) error {
			return runVersion(params, os.Stdout)
		},
	}
}

func runVersion(params versionParams, stdout io.Writer) error {
	var binaryDigest, binaryPath string
	if params.Digest {
		var err error
		binaryDigest, binaryPath, err = version.SelfDigest()
		if err != nil {
			return err
		}
	}
	if params.OutputJSON {
		return cli.WriteJSON(stdout, struct {
			Version   string `json:"version"`
			Commit    string `json:"commit"`
			BuildTime string `json:"build_time"`
			Binary    string `json:"binary,omitempty"`
			BLAKE3    string `json:"blake3,omitempty"`
		}{
			Version:   version.Short(),
			Commit:    version.GitCommit,
			BuildTime: version.BuildTime,
			Binary:    binaryPath,
			BLAKE3:    binaryDigest,
		})
	}
	fmt.Fprintf(stdout, "hasher %s\n", version.Full())
	if params.Digest {
		fmt.Fprintf(stdout, "  Binary: %s\n  BLAKE3: %s\n", binaryPath, binaryDigest)
	}
	return nil
}
