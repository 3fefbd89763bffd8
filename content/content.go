package content

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"memory-match-server/matcherrors"
)

var monsters = []string{
	"/pics/monster_anton_thumb.jpg",
	"/pics/monster_baffo_thumb.jpg",
	"/pics/monster_benni_thumb.jpg",
	"/pics/monster_berta_thumb.jpg",
	"/pics/monster_bombo_thumb.jpg",
	"/pics/monster_bruno_thumb.jpg",
	"/pics/monster_carlo_thumb.jpg",
	"/pics/monster_clara_thumb.jpg",
	"/pics/monster_emil_thumb.jpg",
	"/pics/monster_fiete_thumb.jpg",
	"/pics/monster_fino_thumb.jpg",
	"/pics/monster_flocke_thumb.jpg",
	"/pics/monster_friedrich_thumb.jpg",
	"/pics/monster_glubbio_thumb.jpg",
	"/pics/monster_gordon_thumb.jpg",
	"/pics/monster_grudo_thumb.jpg",
	"/pics/monster_icy_thumb.jpg",
	"/pics/monster_igor_thumb.jpg",
	"/pics/monster_jim_thumb.jpg",
	"/pics/monster_jonas_thumb.jpg",
	"/pics/monster_juri_thumb.jpg",
	"/pics/monster_kalle_thumb.jpg",
	"/pics/monster_knuffling_thumb.jpg",
	"/pics/monster_lars_thumb.jpg",
	"/pics/monster_lila_thumb.jpg",
	"/pics/monster_luppa_thumb.jpg",
	"/pics/monster_mello_thumb.jpg",
	"/pics/monster_milo_thumb.jpg",
	"/pics/monster_moritz_thumb.jpg",
	"/pics/monster_mueffo_thumb.jpg",
	"/pics/monster_nika_thumb.jpg",
	"/pics/monster_noko_thumb.jpg",
	"/pics/monster_oskar_thumb.jpg",
	"/pics/monster_rocko_thumb.jpg",
	"/pics/monster_sami_thumb.jpg",
	"/pics/monster_theo_thumb.jpg",
	"/pics/monster_timmi_thumb.jpg",
	"/pics/monster_tobi_thumb.jpg",
	"/pics/monster_wibbel_thumb.jpg",
	"/pics/monster_yeti_thumb.jpg",
	"/pics/monster_zari_thumb.jpg",
	"/pics/monstr_pepe_thumb.jpg",
}

// Pool is a named set of content keys to draw pairs from.
type Pool struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

// Default returns a copy of the built-in monster picture pool.
func Default() Pool {
	return Pool{Name: "monsters", Items: append([]string(nil), monsters...)}
}

// LoadFile reads a YAML pool file of the form:
//
//	name: animals
//	items:
//	  - /pics/cat.jpg
//	  - /pics/dog.jpg
func LoadFile(path string) (Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pool{}, fmt.Errorf("read content pool: %w", err)
	}
	var p Pool
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pool{}, fmt.Errorf("parse content pool %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = path
	}
	if err := Validate(p.Items); err != nil {
		return Pool{}, fmt.Errorf("content pool %s: %w", p.Name, err)
	}
	return p, nil
}

// Load returns the pool at path, or Default when path is empty.
func Load(path string) (Pool, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Validate rejects empty pools, empty keys and duplicate keys.
func Validate(items []string) error {
	if len(items) == 0 {
		return matcherrors.ErrEmptyContentPool
	}
	if lo.Contains(items, "") {
		return fmt.Errorf("%w: empty content key", matcherrors.ErrEmptyContentPool)
	}
	if dups := lo.FindDuplicates(items); len(dups) > 0 {
		return fmt.Errorf("%w: %v", matcherrors.ErrDuplicateContent, dups)
	}
	return nil
}

// MaxGridSize returns the largest square grid the pool can fill without clamping.
func (p Pool) MaxGridSize() int {
	if len(p.Items) == 0 {
		return 0
	}
	n := 0
	for (n+1)*(n+1)/2 <= len(p.Items) {
		n++
	}
	return n
}
