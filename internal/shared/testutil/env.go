package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Chdir changes the working directory to dir for the rest of the test.
// Tests using it must not run in parallel.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

// IsolateEnv clears the OUTLET_* variables that would otherwise leak into
// configuration loading from the developer's shell.
func IsolateEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "OUTLET_") {
			// Setenv registers the restore; the variable is then removed.
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}
