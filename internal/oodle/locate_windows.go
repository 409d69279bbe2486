//go:build windows

package oodle

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// steamRegistryLocation is one (hive, subkey, value) triple Steam might
// have written its install path under, covering both native and WOW64
// registry views.
type steamRegistryLocation struct {
	hive   registry.Key
	subkey string
	value  string
}

var steamRegistryLocations = []steamRegistryLocation{
	{registry.CURRENT_USER, `SOFTWARE\Valve\Steam`, "SteamPath"},
	{registry.LOCAL_MACHINE, `SOFTWARE\Wow6432Node\Valve\Steam`, "InstallPath"},
	{registry.LOCAL_MACHINE, `SOFTWARE\Valve\Steam`, "InstallPath"},
	{registry.CURRENT_USER, `SOFTWARE\Wow6432Node\Valve\Steam`, "SteamPath"},
}

const oodleDLLName = "oo2core_6_win64.dll"

// locateLibrary finds oo2core_6_win64.dll: first in the working directory,
// then via the Steam install path recorded in the registry, then by
// scanning the library folders listed in libraryfolders.vdf for an Elden
// Ring or Sekiro install. Only library paths containing "steam"
// (case-insensitive) are recognized.
func locateLibrary() (string, bool) {
	if _, err := os.Stat(oodleDLLName); err == nil {
		return oodleDLLName, true
	}

	steamPath, ok := steamInstallPath()
	if !ok {
		return "", false
	}
	return searchSteamLibraries(steamPath)
}

func steamInstallPath() (string, bool) {
	for _, loc := range steamRegistryLocations {
		key, err := registry.OpenKey(loc.hive, loc.subkey, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		val, _, err := key.GetStringValue(loc.value)
		key.Close()
		if err == nil && val != "" {
			return val, true
		}
	}
	return "", false
}

func searchSteamLibraries(steamPath string) (string, bool) {
	vdfPath := filepath.Join(steamPath, "SteamApps", "libraryfolders.vdf")
	f, err := os.Open(vdfPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	skipping := true
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if skipping {
			if !strings.Contains(line, `"path"`) {
				continue
			}
			skipping = false
		}

		fields := strings.Split(line, "\t")
		var libraryPath string
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), "steam") {
				libraryPath = strings.ReplaceAll(field, `"`, "")
				break
			}
		}
		if libraryPath == "" {
			continue
		}

		for _, game := range []string{"ELDEN RING", "Sekiro"} {
			candidate := filepath.Join(libraryPath, "steamapps", "common", game, "Game", oodleDLLName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true
			}
		}
	}

	return "", false
}
