// Package objectkey defines the object key scheme for material image
// uploads.
package objectkey

import (
	"fmt"
	"strings"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key from the owning material, the
	// image's classification kind, the content hash (hex), and the file
	// extension (including the leading dot).
	GenerateKey(materialID int64, kind, sha256Hex, ext string) string
}

// DefaultGenerator produces content-addressed keys of the form
// materials/{id}/{kind}/{sha16}{ext}. The 16-character hash prefix keeps
// keys stable across re-uploads of identical bytes.
type DefaultGenerator struct{}

func NewDefaultGenerator() *DefaultGenerator {
	return &DefaultGenerator{}
}

func (g *DefaultGenerator) GenerateKey(materialID int64, kind, sha256Hex, ext string) string {
	if len(sha256Hex) > 16 {
		sha256Hex = sha256Hex[:16]
	}
	return fmt.Sprintf("materials/%d/%s/%s%s", materialID, sanitizePathComponent(kind), sha256Hex, ext)
}

// CustomFuncGenerator allows callers to provide their own key scheme
type CustomFuncGenerator struct {
	GenerateFunc func(materialID int64, kind, sha256Hex, ext string) string
}

func NewCustomFuncGenerator(fn func(materialID int64, kind, sha256Hex, ext string) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{GenerateFunc: fn}
}

func (g *CustomFuncGenerator) GenerateKey(materialID int64, kind, sha256Hex, ext string) string {
	return g.GenerateFunc(materialID, kind, sha256Hex, ext)
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}
