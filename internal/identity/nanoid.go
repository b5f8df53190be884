package identity

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// ViewerIdentitySize matches 20 random bytes rendered as hex.
	ViewerIdentitySize = 40
	HexAlphabet        = "0123456789abcdef"
)

// NanoIDGenerator generates NanoID identifiers of a fixed size and alphabet.
type NanoIDGenerator struct {
	size     int
	alphabet string
}

// NewViewerIdentityGenerator returns the generator used for anonymous viewers.
func NewViewerIdentityGenerator() *NanoIDGenerator {
	return &NanoIDGenerator{size: ViewerIdentitySize, alphabet: HexAlphabet}
}

func (g *NanoIDGenerator) Generate() (string, error) {
	id, err := gonanoid.Generate(g.alphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to generate NanoID: %w", err)
	}
	return id, nil
}
