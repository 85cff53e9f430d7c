package ir

// ObjectInfo is the payload of a TagObject Entry (spec.md §3.3).
type ObjectInfo struct {
	// Env covers all own properties, string- and symbol-keyed.
	Env *OrderedMap

	// Proto is set only when the object's prototype is not the default
	// object prototype.
	Proto *Entry

	// Partial is true while Env reflects a subset-capture pass rather than
	// a materialize-all pass (§4.4.4); the walker clears it once full
	// materialization completes or escalation fires.
	Partial bool
}

// NewObjectInfo returns an ObjectInfo with an empty Env ready for
// population.
func NewObjectInfo() *ObjectInfo {
	return &ObjectInfo{Env: NewOrderedMap()}
}
