package domain_test

import (
	"testing"

	"missioncore/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of implementation
// packages so every store can depend on it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not import internal packages")
}

func TestDomainHasNoThirdPartyDependencies(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to go list")
	}
	testutil.AssertNoTransitiveDependency(t, ".", testutil.ThirdPartyImport, "domain depends on the standard library only")
}
