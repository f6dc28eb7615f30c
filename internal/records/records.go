// Package records persists build continuity state between runs. Records keep
// module and asset identity stable across successive builds: the compiler
// reads them before compiling and writes them back after emission. Child
// compilers get a partitioned slot addressed by (name, index) so repeated
// sub-builds find their previous state again.
package records

// Records is an arbitrary nested key/value structure. Top-level keys are
// either reserved for the root build or are relative child-compiler names,
// each mapping to an ordered array of per-slot record objects indexed by
// compiler index.
type Records map[string]any

// New returns an empty record set.
func New() Records { return Records{} }

// ChildSlot returns the record object stored at records[name][index],
// creating the array and the slot on first use. The same (name, index) pair
// always yields the same slot across repeated calls, which is what preserves
// continuity across parent builds.
func (r Records) ChildSlot(name string, index int) map[string]any {
	var arr []any
	if existing, ok := r[name].([]any); ok {
		arr = existing
	}
	for len(arr) <= index {
		arr = append(arr, nil)
	}
	slot, ok := arr[index].(map[string]any)
	if !ok {
		slot = make(map[string]any)
		arr[index] = slot
	}
	r[name] = arr
	return slot
}
