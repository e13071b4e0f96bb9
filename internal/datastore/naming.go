package datastore

import (
	"strings"
)

// MaskNaming relates segmentation mask filenames to the original image they were computed from.
// Mask names are the original's name with network and dataset tokens appended,
// e.g. "21_training_unet_drive.png" for the original "21_training.tif".
type MaskNaming struct {
	stripTokens map[string]struct{}
}

// NewMaskNaming creates a naming convention that strips the given tokens
func NewMaskNaming(tokens []string) MaskNaming {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = struct{}{}
		}
	}
	return MaskNaming{stripTokens: set}
}

// OriginalName returns the name (filename without extension) of the original image for a mask name.
// Tokens are separated by "_"; a token may also be attached with "-" as a suffix ("im0001-vgan").
func (n MaskNaming) OriginalName(maskName string) string {
	parts := strings.Split(maskName, "_")
	kept := make([]string, 0, len(parts))

	for _, part := range parts {
		lower := strings.ToLower(part)
		if _, strip := n.stripTokens[lower]; strip {
			continue
		}
		kept = append(kept, n.trimDashSuffixes(part))
	}

	return strings.Join(kept, "_")
}

func (n MaskNaming) trimDashSuffixes(part string) string {
	for {
		idx := strings.Index(part, "-")
		if idx <= 0 {
			return part
		}
		trimmed := false
		for token := range n.stripTokens {
			suffix := "-" + token
			if len(part) > len(suffix) && strings.HasSuffix(strings.ToLower(part), suffix) {
				part = part[:len(part)-len(suffix)]
				trimmed = true
				break
			}
		}
		if !trimmed {
			return part
		}
	}
}
