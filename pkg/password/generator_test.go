package password

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

func Test_Generate(t *testing.T) {
	for _, length := range []int{1, 8, DefaultLength, 64} {
		g := NewGenerator(length, rand.NewSource(int64(length)))
		for i := 0; i < 100; i++ {
			p := g.Generate()
			require.Len(t, p, length)
			require.True(t, isAlphanumeric(p), "unexpected char in %q", p)
		}
	}
}

func Test_DefaultLength(t *testing.T) {
	require.Equal(t, DefaultLength, NewGenerator(0, nil).Length())
	require.Equal(t, DefaultLength, NewGenerator(-3, nil).Length())
	require.Len(t, NewGenerator(0, nil).Generate(), 14)
}

func Test_GenerateFor(t *testing.T) {
	users := []string{"root", "admin", "deploy"}
	passwords := NewGenerator(DefaultLength, rand.NewSource(1)).GenerateFor(users)

	require.Len(t, passwords, len(users))
	for _, user := range users {
		require.Len(t, passwords[user], DefaultLength)
		require.True(t, isAlphanumeric(passwords[user]))
	}
	require.NotEqual(t, passwords["root"], passwords["admin"])
}

func Test_Deterministic(t *testing.T) {
	a := NewGenerator(DefaultLength, rand.NewSource(42)).Generate()
	b := NewGenerator(DefaultLength, rand.NewSource(42)).Generate()
	require.Equal(t, a, b)
}

func Test_GenerateFor_Empty(t *testing.T) {
	require.Empty(t, NewGenerator(DefaultLength, nil).GenerateFor(nil))
}
