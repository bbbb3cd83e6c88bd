package cache

import (
	"encoding/hex"

	"github.com/spaolacci/murmur3"

	"github.com/flagonhq/flagon/internal/toggle"
)

// maxKeyLen matches the strictest backend limit (memcached-style 250 bytes).
// Longer derived keys are replaced by a murmur3-128 digest under the same
// prefix, keeping derivation deterministic for arbitrary toggle names.
const maxKeyLen = 250

// Keys derives cache keys from toggle kind, name and sub-resource.
type Keys struct {
	prefix string
}

// NewKeys creates a key deriver with the configured namespace prefix.
func NewKeys(prefix string) Keys {
	return Keys{prefix: prefix}
}

// Flag returns the key for a flag record.
func (k Keys) Flag(name string) string {
	return k.wrap("flag:" + name)
}

// FlagUsers returns the key for a flag's user membership list.
func (k Keys) FlagUsers(name string) string {
	return k.wrap("flag:" + name + ":users")
}

// FlagGroups returns the key for a flag's group membership list.
func (k Keys) FlagGroups(name string) string {
	return k.wrap("flag:" + name + ":groups")
}

// Switch returns the key for a switch record.
func (k Keys) Switch(name string) string {
	return k.wrap("switch:" + name)
}

// AllSwitches returns the shared aggregate key covering the full switch
// enumeration result.
func (k Keys) AllSwitches() string {
	return k.wrap("switches:all")
}

// Sample returns the key for a sample record.
func (k Keys) Sample(name string) string {
	return k.wrap("sample:" + name)
}

// Record returns the record key for any kind.
func (k Keys) Record(kind toggle.Kind, name string) string {
	switch kind {
	case toggle.KindFlag:
		return k.Flag(name)
	case toggle.KindSwitch:
		return k.Switch(name)
	default:
		return k.Sample(name)
	}
}

func (k Keys) wrap(suffix string) string {
	key := k.prefix + suffix
	if len(key) <= maxKeyLen {
		return key
	}
	h1, h2 := murmur3.Sum128([]byte(suffix))
	digest := make([]byte, 16)
	for i := 0; i < 8; i++ {
		digest[i] = byte(h1 >> (8 * i))
		digest[8+i] = byte(h2 >> (8 * i))
	}
	return k.prefix + "h:" + hex.EncodeToString(digest)
}
