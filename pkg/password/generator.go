package password

import (
	"math/rand"
	"time"
)

const (
	DefaultLength = 14
	Alphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator produces alphanumeric passwords. It is not safe for concurrent use.
type Generator struct {
	length int
	rnd    *rand.Rand
}

// NewGenerator returns a generator of passwords with the given length.
// A nil src is replaced with a time-seeded source.
func NewGenerator(length int, src rand.Source) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{
		length: length,
		rnd:    rand.New(src),
	}
}

func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Generate() string {
	buf := make([]byte, g.length)
	for i := range buf {
		buf[i] = Alphabet[g.rnd.Intn(len(Alphabet))]
	}
	return string(buf)
}

// GenerateFor returns one fresh password per user.
func (g *Generator) GenerateFor(users []string) map[string]string {
	passwords := make(map[string]string, len(users))
	for _, user := range users {
		passwords[user] = g.Generate()
	}
	return passwords
}
