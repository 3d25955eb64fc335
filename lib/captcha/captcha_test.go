package captcha

import (
	"beykent-notifier/lib/telemetry"
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// fakeRecognizer answers by crop file name, mirroring how the real
// recognizer is handed one saved crop at a time.
type fakeRecognizer struct {
	reads map[string]string
}

func (f fakeRecognizer) Recognize(_ context.Context, imagePath string) (string, error) {
	return f.reads[filepath.Base(imagePath)], nil
}

func writeCaptchaImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captcha.png")
	blank := imaging.New(140, 40, color.White)
	err := imaging.Save(blank, path)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func solveWith(t *testing.T, reads map[string]string) (int, error) {
	t.Helper()
	cleanup := telemetry.SetupForTesting(t, "test:lib/captcha")
	defer cleanup()

	solver := NewSolver(fakeRecognizer{reads: reads}, DefaultLayout, t.TempDir())
	return solver.Solve(context.Background(), writeCaptchaImage(t))
}

func TestSolveSinglePlusDouble(t *testing.T) {
	// the double-digit left read under-reads ("7" < 10) which forces
	// the single-digit re-read, the right double-digit read holds
	answer, err := solveWith(t, map[string]string{
		"left_twice.png":  "7",
		"left_unit.png":   "7",
		"right_twice.png": "23.",
		"right_unit.png":  "2",
	})
	require.NoError(t, err)
	require.Equal(t, 30, answer)
}

func TestSolveDoublePlusDouble(t *testing.T) {
	answer, err := solveWith(t, map[string]string{
		"left_twice.png":  "28",
		"right_twice.png": "1 4",
	})
	require.NoError(t, err)
	require.Equal(t, 42, answer)
}

func TestSolveSinglePlusSingleFallback(t *testing.T) {
	// left under-reads and the right double-digit window also
	// under-reads, so both operands come from the unit windows
	answer, err := solveWith(t, map[string]string{
		"left_twice.png":  "3",
		"left_unit.png":   "3",
		"right_twice.png": "9",
		"right_unit.png":  "9",
	})
	require.NoError(t, err)
	require.Equal(t, 12, answer)
}

func TestSolveNonNumericLeft(t *testing.T) {
	answer, err := solveWith(t, map[string]string{
		"left_twice.png": "x#",
		"left_unit.png":  "5",
		"right_unit.png": "3",
	})
	require.NoError(t, err)
	require.Equal(t, 8, answer)
}

func TestSolveUnresolved(t *testing.T) {
	_, err := solveWith(t, map[string]string{
		"left_twice.png":  "??",
		"left_unit.png":   "--",
		"right_twice.png": "",
		"right_unit.png":  "",
	})
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestStripNonDigits(t *testing.T) {
	require.Equal(t, "23", stripNonDigits(" 2 3 ."))
	require.Equal(t, "7", stripNonDigits("7"))
	require.Equal(t, "", stripNonDigits("abc"))
}
