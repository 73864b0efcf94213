// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

const regexEngineModule = "github.com/dlclark/regexp2"

// VersionInfo is what `applyre version` reports about the binary
type VersionInfo struct {
	Version     string `json:"version"`
	Revision    string `json:"revision,omitempty"`
	Time        string `json:"time,omitempty"`
	Modified    bool   `json:"modified,omitempty"`
	RegexEngine string `json:"regex_engine,omitempty"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

// GetVersionInfo reads the version information embedded by the go toolchain.
// Binaries built from a checkout report "dev".
func GetVersionInfo() *VersionInfo {
	info := &VersionInfo{
		Version:   "dev",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, dep := range buildInfo.Deps {
		if dep.Path == regexEngineModule {
			info.RegexEngine = dep.Path + " " + dep.Version
		}
	}
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.time":
			info.Time = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// FormatVersion renders info for the terminal
func FormatVersion(info *VersionInfo) string {
	var b strings.Builder
	b.WriteString("🚀 applyre version info:\n")
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-10s %s\n", label+":", value)
		}
	}

	revision := info.Revision
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" && info.Modified {
		revision += " (modified)"
	}

	line("Version", info.Version)
	line("Revision", revision)
	line("Built", info.Time)
	line("Regex", info.RegexEngine)
	line("Go", info.GoVersion)
	line("Platform", info.Platform)
	return b.String()
}

func newVersionCmd(out io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := GetVersionInfo()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, err := fmt.Fprint(out, FormatVersion(info))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the build information as JSON")
	return cmd
}
