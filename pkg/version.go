package pkg

import (
	"fmt"
	"strconv"
	"strings"
)

// set with -ldflags "-X github.com/yusing/chunkstream/pkg.version=v1.2.3"
var version = "unset"

var currentVersion = parseVersion(version)

func GetVersion() Version {
	return currentVersion
}

type Version struct{ Major, Minor, Patch int }

func Ver(major, minor, patch int) Version {
	return Version{major, minor, patch}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v Version) IsNewerThan(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch > other.Patch
}

func parseVersion(v string) (ver Version) {
	if v == "" {
		return
	}

	v = strings.Split(v, "-")[0]
	v = strings.TrimPrefix(v, "v")
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}
	return Ver(major, minor, patch)
}
