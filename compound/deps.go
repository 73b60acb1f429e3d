package compound

type depRef struct {
	name  string
	index int
	later bool
}

// Deps carries the values of the fields a validator or hook declared with
// Uses or UsesLater.
type Deps struct {
	names   []string
	values  []any
	present []bool
}

// Lookup returns the value of a declared dependency. ok is false for later
// fields during decoding and for names that were never declared.
func (d Deps) Lookup(name string) (v any, ok bool) {
	for i, n := range d.names {
		if n == name {
			return d.values[i], d.present[i]
		}
	}
	return nil, false
}

// Len returns the number of declared dependencies.
func (d Deps) Len() int { return len(d.names) }

// Dep returns a dependency converted to F.
func Dep[F any](d Deps, name string) (F, bool) {
	v, ok := d.Lookup(name)
	if !ok {
		var zero F
		return zero, false
	}
	f, ok := v.(F)
	return f, ok
}
