package utils

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/twmb/murmur3"
)

func HashString(s string) uint64 {
	hash := murmur3.New64()
	_, err := hash.Write([]byte(s))
	if err != nil {
		panic(err)
	}
	return hash.Sum64()
}

func HashBytes(bytes ...[]byte) uint64 {
	hash := murmur3.New64()
	for _, b := range bytes {
		_, err := hash.Write(b)
		if err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

func HashStrings(ss []string) []uint64 {
	hashes := make([]uint64, len(ss))
	for i, s := range ss {
		hashes[i] = HashString(s)
	}
	return hashes
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Ceil returns ceil(n * fraction).
func Ceil(n int, fraction float64) int {
	return int(math.Ceil(float64(n) * fraction))
}
