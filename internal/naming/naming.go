// Package naming derives deterministic output filenames for compiled assets.
//
// Names are addressed by the ordered input list and the newest modification
// time of the watch set, not by content. Two builds with the same inputs and
// the same last-modified second share a name even if the bytes differ.
package naming

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/conneroisu/assetloader/internal/interfaces"
)

const hashLength = 12

// Convention wraps the generated name in a prefix and a suffix.
type Convention struct {
	Prefix string
	Suffix string
}

var _ interfaces.NamingConvention = Convention{}

// JS returns the convention used for JavaScript bundles.
func JS() Convention {
	return Convention{Prefix: "loader-", Suffix: ".js"}
}

// CSS returns the convention used for stylesheet bundles.
func CSS() Convention {
	return Convention{Prefix: "loader-", Suffix: ".css"}
}

// Filename returns prefix + hashKey + "-" + hashTime [+ "-" + basename] + suffix.
// The basename part is only added for single-input builds.
func (c Convention) Filename(files []string, lastModified int64) string {
	name := shortHash(strings.Join(files, "|")) + "-" + shortHash(strconv.FormatInt(lastModified, 10))

	if len(files) == 1 {
		name += "-" + baseNameWithoutExt(files[0])
	}

	return c.Prefix + name + c.Suffix
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLength]
}

func baseNameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
