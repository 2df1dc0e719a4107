// Package particle provides the particle type table used to resolve a
// phase-space record's identity into physical properties. Types are
// looked up either once per run (static configuration) or per record by
// PDG code, depending on the replay configuration.
package particle

import (
	"sort"
	"sync"

	"github.com/phasegen/phasegen/pkg/errors"
)

// Type describes one particle species. Charge is in units of the
// elementary charge, Mass in MeV. Charge and mass are carried explicitly
// because generic ions do not encode them in the PDG code alone.
type Type struct {
	Name   string
	PDG    int32
	Charge float64
	Mass   float64
}

// Table resolves particle identities to their physical properties.
// It is populated once and then shared read-only across workers.
type Table struct {
	mu     sync.RWMutex
	byCode map[int32]Type
	byName map[string]Type
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byCode: make(map[int32]Type),
		byName: make(map[string]Type),
	}
}

// Register adds a particle type. Registering a name or code twice
// replaces the earlier entry.
func (t *Table) Register(p Type) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byCode[p.PDG] = p
	t.byName[p.Name] = p
}

// FindByCode resolves a particle type by PDG code.
func (t *Table) FindByCode(code int32) (Type, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byCode[code]
	if !ok {
		return Type{}, errors.Newf(errors.ErrorTypeParticle, "unknown PDG code %d", code)
	}
	return p, nil
}

// FindByName resolves a particle type by name.
func (t *Table) FindByName(name string) (Type, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byName[name]
	if !ok {
		return Type{}, errors.Newf(errors.ErrorTypeParticle, "unknown particle %q", name)
	}
	return p, nil
}

// Names returns the registered particle names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// builtins lists the species every table starts from. Masses in MeV.
var builtins = []Type{
	{Name: "gamma", PDG: 22, Charge: 0, Mass: 0},
	{Name: "e-", PDG: 11, Charge: -1, Mass: 0.51099895},
	{Name: "e+", PDG: -11, Charge: 1, Mass: 0.51099895},
	{Name: "mu-", PDG: 13, Charge: -1, Mass: 105.6583755},
	{Name: "mu+", PDG: -13, Charge: 1, Mass: 105.6583755},
	{Name: "proton", PDG: 2212, Charge: 1, Mass: 938.27208816},
	{Name: "neutron", PDG: 2112, Charge: 0, Mass: 939.56542052},
	{Name: "pi-", PDG: -211, Charge: -1, Mass: 139.57039},
	{Name: "pi+", PDG: 211, Charge: 1, Mass: 139.57039},
	{Name: "alpha", PDG: 1000020040, Charge: 2, Mass: 3727.3794066},
	{Name: "deuteron", PDG: 1000010020, Charge: 1, Mass: 1875.61294257},
	{Name: "triton", PDG: 1000010030, Charge: 1, Mass: 2808.92113298},
	{Name: "C12", PDG: 1000060120, Charge: 6, Mass: 11174.86},
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// DefaultTable returns the shared table pre-populated with the common
// species. Callers may Register additional ions on top of it.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = NewTable()
		for _, p := range builtins {
			defaultTable.Register(p)
		}
	})
	return defaultTable
}
