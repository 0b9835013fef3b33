package verify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cchalm/codebot/internal/lang"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVerifyJSON(t *testing.T) {
	v := NewVerifier(0, nil)

	res, err := v.Verify(context.Background(), writeFile(t, "ok.json", `{"a": [1, 2]}`))
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.Equal(t, "json", res.Kind)

	res, err = v.Verify(context.Background(), writeFile(t, "bad.json", `{"a": `))
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Contains(t, res.Message, "JSON syntax error")
}

func TestVerifyUnknownKindPasses(t *testing.T) {
	res, err := NewVerifier(0, nil).Verify(context.Background(), writeFile(t, "style.css", "a {"))
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.NotEmpty(t, res.Message)
}

func TestVerifyMissingTool(t *testing.T) {
	v := NewVerifier(0, nil)
	v.commands[lang.Python] = []string{"codebot-no-such-python"}

	res, err := v.Verify(context.Background(), writeFile(t, "app.py", "x = 1\n"))
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Contains(t, res.Message, "not found")
}

func TestVerifyPython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	v := NewVerifier(0, nil)

	res, err := v.Verify(context.Background(), writeFile(t, "good.py", "def f():\n    return 1\n"))
	require.NoError(t, err)
	require.True(t, res.Passed, res.Message)

	res, err = v.Verify(context.Background(), writeFile(t, "bad.py", "def f(:\n"))
	require.NoError(t, err)
	require.False(t, res.Passed)
	require.Contains(t, res.Message, "SyntaxError")
}
