package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreContent_NoTerms(t *testing.T) {
	for _, description := range []string{"", "   ", "!!! ??? ...", "-- / --"} {
		require.Zero(t, ScoreContent(description, "error bug everything"), "description %q", description)
	}
}

func TestScoreContent_FractionOfTerms(t *testing.T) {
	// "save" and "button" are found, "broken" is not
	score := ScoreContent("Save button broken", "function onSave() { renderButton() }")
	require.InDelta(t, 2.0/3.0, score, 1e-9)
}

func TestScoreContent_RepeatedTermsCollapse(t *testing.T) {
	once := ScoreContent("login fails", "login()")
	repeated := ScoreContent("login login login fails", "login()")
	require.Equal(t, once, repeated)
}

func TestScoreContent_CaseInsensitive(t *testing.T) {
	require.Equal(t, 1.0, ScoreContent("LOGIN Handler", "def login_handler(): pass"))
}

func TestScoreContent_Boosts(t *testing.T) {
	// One of two terms matches, plus the "error" boost
	score := ScoreContent("error banana", "raise Error('x')")
	require.InDelta(t, 0.5+0.2, score, 1e-9)

	// "bug" in the description only does not boost
	score = ScoreContent("bug banana", "banana")
	require.InDelta(t, 0.5, score, 1e-9)
}

func TestScoreContent_Clamped(t *testing.T) {
	score := ScoreContent("error bug", "this error is a bug")
	require.Equal(t, 1.0, score)
}

func TestScoreContent_MonotonicInSharedTerms(t *testing.T) {
	description := "alpha beta gamma delta"
	contents := []string{"", "alpha", "alpha beta", "alpha beta gamma", "alpha beta gamma delta"}

	previous := -1.0
	for _, content := range contents {
		score := ScoreContent(description, content)
		require.GreaterOrEqual(t, score, previous, "content %q", content)
		previous = score
	}
}

func TestScoreContent_EndToEndExample(t *testing.T) {
	description := "null pointer error in login handler"
	content := "if user is None: raise Exception('error: null login')"

	// null, error, in (inside "login"), login match; pointer and handler do not
	score := ScoreContent(description, content)
	require.InDelta(t, 4.0/6.0+0.2, score, 1e-9)
}

func TestScoreContent_UnicodeTerms(t *testing.T) {
	require.Equal(t, 1.0, ScoreContent("café", "CAFÉ = 1"))
}

func TestScoreFile_Unreadable(t *testing.T) {
	fileScore := ScoreFile(filepath.Join(t.TempDir(), "missing.py"), "anything")
	require.True(t, fileScore.Skipped())
	require.Equal(t, SkipUnreadable, fileScore.Skip)
	require.Error(t, fileScore.Err)
	require.Zero(t, fileScore.Score)
}

func TestScoreFile_NotText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.js")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00, 'e', 'r', 'r', 'o', 'r'}, 0o644))

	fileScore := ScoreFile(path, "error")
	require.Equal(t, SkipNotText, fileScore.Skip)
	require.Zero(t, fileScore.Score)
}

func TestScoreFile_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.py")
	require.NoError(t, os.WriteFile(path, []byte("def login(): raise ValueError('error')"), 0o644))

	fileScore := ScoreFile(path, "login error")
	require.False(t, fileScore.Skipped())
	require.Equal(t, 1.0, fileScore.Score)
}
