package profile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultKeys returns the shared preference key set the CRM ships with:
// two market families, two infrastructure-sector families, and the six
// focus countries. The set is configuration, not algorithm; every consumer
// receives it through a KeySet rather than reading a package constant.
func DefaultKeys() []string {
	return []string{
		"us_market",
		"emerging_markets",
		"energy_infra",
		"transport_infra",
		"vietnam",
		"indonesia",
		"philippines",
		"thailand",
		"malaysia",
		"india",
	}
}

// KeySet is the ordered shared-preference key set with a lookup index.
type KeySet struct {
	keys  []string
	index map[string]int
}

// NewKeySet builds a KeySet from an ordered key list. Duplicates and empty
// strings are dropped, first occurrence wins.
func NewKeySet(keys []string) KeySet {
	ks := KeySet{index: make(map[string]int, len(keys))}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := ks.index[k]; ok {
			continue
		}
		ks.index[k] = len(ks.keys)
		ks.keys = append(ks.keys, k)
	}
	return ks
}

// Keys returns the key list in declaration order. The slice is a copy.
func (ks KeySet) Keys() []string {
	out := make([]string, len(ks.keys))
	copy(out, ks.keys)
	return out
}

// Contains reports whether key belongs to the set.
func (ks KeySet) Contains(key string) bool {
	_, ok := ks.index[key]
	return ok
}

// Len returns the number of keys in the set.
func (ks KeySet) Len() int {
	return len(ks.keys)
}

// LoadKeySchema reads a preference-key schema from a YAML file. The file has
// a top-level "preference_keys" list; an empty or missing list is an error so
// a bad schema path cannot silently collapse every profile to zero keys.
func LoadKeySchema(path string) (KeySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeySet{}, eris.Wrapf(err, "profile: read key schema %s", path)
	}

	var wrapper struct {
		PreferenceKeys []string `yaml:"preference_keys"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return KeySet{}, eris.Wrap(err, "profile: parse key schema")
	}

	ks := NewKeySet(wrapper.PreferenceKeys)
	if ks.Len() == 0 {
		return KeySet{}, eris.Errorf("profile: key schema %s defines no preference keys", path)
	}
	return ks, nil
}
