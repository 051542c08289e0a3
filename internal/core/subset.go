package core

import "sort"

// ValidateSubset checks that every entry the live document claims to contain
// is explained by the candidate document or by the exemption list. The
// reverse direction is deliberately not checked: packages appearing only in
// the candidate are new and expected, while entries only in the live
// document mean something was removed without an exemption.
func ValidateSubset(actual, expected *RegistryDocument, exempt []string) error {
	exemptSet := make(map[string]struct{}, len(exempt))
	for _, name := range exempt {
		exemptSet[name] = struct{}{}
	}

	var unexplained []string
	for name := range actual.Entries {
		if _, ok := expected.Entries[name]; ok {
			continue
		}
		if _, ok := exemptSet[name]; ok {
			continue
		}
		unexplained = append(unexplained, name)
	}

	if len(unexplained) > 0 {
		sort.Strings(unexplained)
		return &SubsetError{Keys: unexplained}
	}
	return nil
}
