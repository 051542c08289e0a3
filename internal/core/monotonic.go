package core

// ValidateMonotonic checks that newer never regresses below older. The walk
// is keyed by older: every key in older must exist in newer, while keys only
// present in newer are ignored. Strings compare by semantic version when both
// sides parse and lexically otherwise, numbers compare numerically, booleans
// must be equal, and objects recurse carrying the key path for diagnostics.
func ValidateMonotonic(older, newer Object) error {
	return validateMonotonic(older, newer, "")
}

func validateMonotonic(older, newer Object, path string) error {
	for _, key := range sortedKeys(older) {
		o := older[key]
		p := childPath(path, key)

		n, ok := newer[key]
		if !ok {
			return &MonotonicityError{Path: p, Older: displayValue(o), Missing: true}
		}

		switch ov := o.(type) {
		case String:
			nv, ok := n.(String)
			if !ok || !versionAtLeast(string(nv), string(ov)) {
				return &MonotonicityError{Path: p, Older: string(ov), Newer: displayValue(n)}
			}
		case Number:
			nv, ok := n.(Number)
			if !ok || nv < ov {
				return &MonotonicityError{Path: p, Older: displayValue(ov), Newer: displayValue(n)}
			}
		case Bool:
			nv, ok := n.(Bool)
			if !ok || nv != ov {
				return &MonotonicityError{Path: p, Older: displayValue(ov), Newer: displayValue(n)}
			}
		case Object:
			nv, ok := n.(Object)
			if !ok {
				return &MonotonicityError{Path: p, Older: displayValue(ov), Newer: displayValue(n)}
			}
			if err := validateMonotonic(ov, nv, p); err != nil {
				return err
			}
		}
	}
	return nil
}
