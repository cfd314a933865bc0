// Package dictionary holds the class dictionary: the runtime registry of
// class and property definitions that every object is validated against.
//
// Classes form a single-rooted inheritance lattice under InterchangeObject.
// A Dictionary starts from the compiled-in baseline schema (baseline.go) and
// can be extended at load time, either from the extension table embedded in
// an opened container or from a TOML schema file. Extensions merge with an
// extension-wins rule guarded by compatibility checks: an extension may add
// classes and properties and may make an abstract class concrete, but it may
// not re-parent a class or redefine an existing property's type or local id.
//
// Property resolution always walks the full parent chain, so lookups see
// inherited properties, and a corrupted chain that loops back on itself is
// reported as faults.ErrCyclicInheritance rather than spinning.
package dictionary
