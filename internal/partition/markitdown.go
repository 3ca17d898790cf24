// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package partition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/slide-engine/internal/container"
)

// ImageMarkitdown is the container image used by MarkitdownExtractor.
const ImageMarkitdown = "markitdown:latest"

// MarkitdownExtractor converts a group's sub-document to text by piping it
// through the markitdown container image.
type MarkitdownExtractor struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownExtractor verifies that the markitdown image exists in rt.
func NewMarkitdownExtractor(ctx context.Context, rt container.Runtime) (*MarkitdownExtractor, error) {
	if err := rt.ImageExists(ctx, ImageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownExtractor{runtime: rt, image: ImageMarkitdown}, nil
}

// Extract implements TextExtractor. The result always ends with a newline.
func (m *MarkitdownExtractor) Extract(ctx context.Context, _ Document, g Group, subDocPath string) (string, error) {
	f, err := os.Open(subDocPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", subDocPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, f, &out); err != nil {
		return "", fmt.Errorf("converting %s with markitdown: %w", g.Name(), err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("markitdown produced empty output for %s", g.Name())
	}

	text := out.String()
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}
