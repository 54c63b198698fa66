package inventory

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Conflict resolution policies accepted by NewResolver.
const (
	PolicyLargest     = "largest"
	PolicyFirst       = "first"
	PolicyInteractive = "interactive"
)

// Resolver decides which candidate of a conflict to keep.
// It returns the index of the candidate; every other candidate is deleted.
type Resolver interface {
	Resolve(c Conflict) int
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(c Conflict) int

// Resolve calls f(c).
func (f ResolverFunc) Resolve(c Conflict) int { return f(c) }

// LargestFile keeps the candidate with the most bytes on disk.
// Ties go to the earliest candidate.
var LargestFile = ResolverFunc(func(c Conflict) int {
	best := 0
	for i, cand := range c.Candidates {
		if cand.Bytes > c.Candidates[best].Bytes {
			best = i
		}
	}
	return best
})

// FirstCandidate always keeps the first candidate.
var FirstCandidate = ResolverFunc(func(c Conflict) int { return 0 })

// Prompt asks an operator to choose. Empty or invalid input selects index 0.
type Prompt struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompt creates an interactive resolver reading answers from in.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{reader: bufio.NewReader(in), out: out}
}

// Resolve prints the candidates and reads the chosen index.
func (p *Prompt) Resolve(c Conflict) int {
	fmt.Fprintf(p.out, "\n⚠️  Conflicting files for %s:\n",
		color.New(color.Bold).Sprintf("%d_p%d", c.ImageID, c.Part))
	for i, cand := range c.Candidates {
		fmt.Fprintf(p.out, "  [%d] %s  %s  %d bytes\n", i,
			color.New(color.FgCyan).Sprint(cand.Name),
			color.New(color.FgYellow).Sprintf("%dx%d", cand.Width, cand.Height),
			cand.Bytes)
	}
	fmt.Fprint(p.out, "Index to keep (others are deleted) [0]: ")

	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return 0
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 0 || choice >= len(c.Candidates) {
		return 0
	}
	return choice
}

// NewResolver returns the resolver for a configured policy.
func NewResolver(policy string, in io.Reader, out io.Writer) (Resolver, error) {
	switch strings.ToLower(policy) {
	case "", PolicyLargest:
		return LargestFile, nil
	case PolicyFirst:
		return FirstCandidate, nil
	case PolicyInteractive:
		return NewPrompt(in, out), nil
	default:
		return nil, fmt.Errorf("unknown conflict policy %q", policy)
	}
}
