// Package chaos corrupts SQL text for robustness tests.
//
// Besides raw byte damage it applies the mistakes an editor buffer is full
// of while a statement is being typed: stray quotes and parentheses, cut
// off statements and keywords dropped in the wrong place.
package chaos

import (
	"math/rand"
	"unicode/utf8"
)

// Corruptor applies seeded, reproducible mutations.
type Corruptor struct {
	rng *rand.Rand
}

// NewCorruptor creates a new Corruptor with the given seed.
func NewCorruptor(seed int64) *Corruptor {
	return &Corruptor{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Mutation represents a type of corruption applied to input.
type Mutation int

const (
	ByteFlip Mutation = iota
	ByteDelete
	ByteInsert
	ByteReplace
	Utf8Corrupt
	Truncation
	BitInversion
	QuoteInject
	ParenInject
	KeywordInject
	StatementSplit
	mutationCount
)

var mutationNames = [...]string{
	ByteFlip:       "byte_flip",
	ByteDelete:     "byte_delete",
	ByteInsert:     "byte_insert",
	ByteReplace:    "byte_replace",
	Utf8Corrupt:    "utf8_corrupt",
	Truncation:     "truncation",
	BitInversion:   "bit_inversion",
	QuoteInject:    "quote_inject",
	ParenInject:    "paren_inject",
	KeywordInject:  "keyword_inject",
	StatementSplit: "statement_split",
}

func (m Mutation) String() string {
	if m >= 0 && m < mutationCount {
		return mutationNames[m]
	}
	return "unknown"
}

// Mutations returns every mutation kind.
func Mutations() []Mutation {
	out := make([]Mutation, mutationCount)
	for i := range out {
		out[i] = Mutation(i)
	}
	return out
}

// keywords are dropped into text by KeywordInject.
var keywords = []string{
	"SELECT", "FROM", "WHERE", "JOIN", "ON", "GROUP BY", "ORDER", "CREATE TABLE",
	"PRIMARY KEY", "REFERENCES", "BEGIN", "END", "CASE", "WITH", "VALUES", "AS",
}

// Corrupt applies a random corruption to the input. The input is not
// modified.
func (c *Corruptor) Corrupt(input []byte) []byte {
	if len(input) == 0 {
		return c.insertRandomBytes(nil)
	}
	return c.Apply(input, Mutation(c.rng.Intn(int(mutationCount))))
}

// Apply applies mutation m to a copy of input.
func (c *Corruptor) Apply(input []byte, m Mutation) []byte {
	result := make([]byte, len(input))
	copy(result, input)

	switch m {
	case ByteFlip:
		return c.byteFlip(result)
	case ByteDelete:
		return c.byteDelete(result)
	case ByteInsert:
		return c.insertAt(result, []byte{byte(c.rng.Intn(256))})
	case ByteReplace:
		return c.byteReplace(result)
	case Utf8Corrupt:
		return c.utf8Corrupt(result)
	case Truncation:
		return c.truncate(result)
	case BitInversion:
		return c.bitInversion(result)
	case QuoteInject:
		quotes := []string{"'", `"`, "`", "[", "/*", "--"}
		return c.insertAt(result, []byte(quotes[c.rng.Intn(len(quotes))]))
	case ParenInject:
		parens := []string{"(", ")", "((", "))"}
		return c.insertAt(result, []byte(parens[c.rng.Intn(len(parens))]))
	case KeywordInject:
		return c.insertAt(result, []byte(" "+keywords[c.rng.Intn(len(keywords))]+" "))
	case StatementSplit:
		return c.insertAt(result, []byte(";"))
	}
	return result
}

// CorruptN applies n random corruptions to the input.
func (c *Corruptor) CorruptN(input []byte, n int) []byte {
	result := make([]byte, len(input))
	copy(result, input)

	for i := 0; i < n; i++ {
		result = c.Corrupt(result)
	}

	return result
}

// byteFlip flips random bits in 1-3 random bytes.
func (c *Corruptor) byteFlip(result []byte) []byte {
	if len(result) == 0 {
		return result
	}
	n := c.rng.Intn(3) + 1
	for i := 0; i < n; i++ {
		idx := c.rng.Intn(len(result))
		result[idx] ^= byte(1 << c.rng.Intn(8))
	}
	return result
}

func (c *Corruptor) byteDelete(result []byte) []byte {
	if len(result) <= 1 {
		return result
	}
	idx := c.rng.Intn(len(result))
	return append(result[:idx], result[idx+1:]...)
}

// insertAt inserts insert at a random position.
func (c *Corruptor) insertAt(result, insert []byte) []byte {
	idx := c.rng.Intn(len(result) + 1)
	out := make([]byte, 0, len(result)+len(insert))
	out = append(out, result[:idx]...)
	out = append(out, insert...)
	return append(out, result[idx:]...)
}

func (c *Corruptor) byteReplace(result []byte) []byte {
	if len(result) == 0 {
		return result
	}
	idx := c.rng.Intn(len(result))
	result[idx] = byte(c.rng.Intn(256))
	return result
}

// utf8Corrupt damages multi-byte sequences and plants invalid start bytes.
func (c *Corruptor) utf8Corrupt(result []byte) []byte {
	for i := 0; i < len(result); {
		r, size := utf8.DecodeRune(result[i:])
		if r == utf8.RuneError && size > 1 && c.rng.Float64() < 0.5 {
			result[i] = byte(c.rng.Intn(256))
		}
		i += size
	}
	if len(result) > 0 && c.rng.Float64() < 0.3 {
		idx := c.rng.Intn(len(result))
		result[idx] = 0xC0 | byte(c.rng.Intn(0x20))
	}
	return result
}

// truncate cuts the input at a random position, as an editor buffer is
// while a statement is still being typed.
func (c *Corruptor) truncate(result []byte) []byte {
	if len(result) <= 1 {
		return result
	}
	pos := c.rng.Intn(len(result)-1) + 1
	return result[:pos]
}

// bitInversion inverts 1-5 random bits.
func (c *Corruptor) bitInversion(result []byte) []byte {
	if len(result) == 0 {
		return result
	}
	n := c.rng.Intn(5) + 1
	for i := 0; i < n; i++ {
		idx := c.rng.Intn(len(result))
		result[idx] ^= 1 << c.rng.Intn(8)
	}
	return result
}

func (c *Corruptor) insertRandomBytes(input []byte) []byte {
	n := c.rng.Intn(10) + 1
	b := make([]byte, n)
	c.rng.Read(b)
	return append(input, b...)
}

// GenerateCorpus generates count corrupted variants of valid with varying
// intensity.
func (c *Corruptor) GenerateCorpus(valid []byte, count int) [][]byte {
	corpus := make([][]byte, count)
	for i := 0; i < count; i++ {
		intensity := c.rng.Intn(5) + 1
		corpus[i] = c.CorruptN(valid, intensity)
	}
	return corpus
}
