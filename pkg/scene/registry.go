package scene

import (
	"fmt"
	"sort"
	"strings"
)

// Info describes a registered demo scene for listings and the scenes API
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultName is the scene rendered when no name is given
const DefaultName = "basin"

var builders = map[string]func() *Scene{
	"basin":   NewBasinScene,
	"spheres": NewSphereFieldScene,
	"ridge":   NewRidgeScene,
}

// Names returns the registered scene names in sorted order
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for every registered scene, sorted by name
func List() []Info {
	infos := make([]Info, 0, len(builders))
	for _, name := range Names() {
		s := builders[name]()
		infos = append(infos, Info{Name: s.Name, Description: s.Description})
	}
	return infos
}

// ByName builds a fresh instance of the named demo scene
func ByName(name string) (*Scene, error) {
	builder, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return builder(), nil
}
