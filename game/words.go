package game

import (
	"bufio"
	_ "embed"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
)

//go:embed words.txt
var defaultWords string

// ListWordBank draws random words from a fixed in-memory list.
type ListWordBank struct {
	words  []string
	locker sync.Mutex
	rng    *rand.Rand
}

func NewListWordBank(words []string, rng *rand.Rand) *ListWordBank {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ListWordBank{words: words, rng: rng}
}

// LoadWordBank reads one word per line, ignoring blank lines and lines
// starting with '#'.
func LoadWordBank(r io.Reader, rng *rand.Rand) (*ListWordBank, error) {
	words := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewListWordBank(words, rng), nil
}

// DefaultWords returns the embedded word list.
func DefaultWords() []string {
	bank, _ := LoadWordBank(strings.NewReader(defaultWords), nil)
	return bank.words
}

func NewDefaultWordBank() *ListWordBank {
	return NewListWordBank(DefaultWords(), nil)
}

// Generate returns up to count distinct words in random order.
func (b *ListWordBank) Generate(count int) []string {
	if count <= 0 || len(b.words) == 0 {
		return []string{}
	}
	b.locker.Lock()
	defer b.locker.Unlock()

	if count > len(b.words) {
		count = len(b.words)
	}
	picked := make([]string, 0, count)
	for _, i := range b.rng.Perm(len(b.words))[:count] {
		picked = append(picked, b.words[i])
	}
	return picked
}

func (b *ListWordBank) Len() int {
	return len(b.words)
}

// FallbackWordBank tops up whatever the primary bank could not provide with
// words from the fallback.
type FallbackWordBank struct {
	primary  WordBank
	fallback WordBank
}

func NewFallbackWordBank(primary, fallback WordBank) *FallbackWordBank {
	return &FallbackWordBank{primary: primary, fallback: fallback}
}

func (b *FallbackWordBank) Generate(count int) []string {
	words := b.primary.Generate(count)
	if len(words) >= count {
		return words
	}

	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}
	for _, w := range b.fallback.Generate(count) {
		if len(words) == count {
			break
		}
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}
