// Package pairing builds the comparison questions of an image group: every
// unordered pair of the group's segmentation masks, a share of them repeated
// to measure rater consistency, in random order.
package pairing

import (
	"context"
	"math/rand/v2"

	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
	"github.com/tphakala/surveygen/internal/shuffle"
)

// ReferenceResolver finds the original image a segmentation mask was computed from
type ReferenceResolver interface {
	FindOriginalForSegmentationMask(ctx context.Context, mask *datastore.Image) (*datastore.Image, error)
}

// Options controls redundancy injection
type Options struct {
	RedundancyPercent float64    // share of pairs repeated, 0..100
	Multiplier        int        // extra copies of each repeated pair
	Rand              *rand.Rand // nil uses the shared source
}

// Validate checks the redundancy parameters
func (o Options) Validate() error {
	if o.RedundancyPercent < 0 || o.RedundancyPercent > 100 {
		return errors.ConfigurationError("pairing", "redundancypercent", o.RedundancyPercent,
			"redundancy percentage must be within 0..100, got %v", o.RedundancyPercent)
	}
	if o.Multiplier < 1 {
		return errors.ConfigurationError("pairing", "multiplier", o.Multiplier,
			"redundancy multiplier must be at least 1, got %d", o.Multiplier)
	}
	return nil
}

// Pair is an unordered pair of distinct group members
type Pair struct {
	A, B      *datastore.Image
	Redundant bool
}

// Pairs enumerates all C(k,2) unordered pairs of images, i<j in input order
func Pairs(images []*datastore.Image) []Pair {
	k := len(images)
	if k < 2 {
		return nil
	}
	pairs := make([]Pair, 0, k*(k-1)/2)
	for i := 0; i < k-1; i++ {
		for j := i + 1; j < k; j++ {
			pairs = append(pairs, Pair{A: images[i], B: images[j]})
		}
	}
	return pairs
}

// RedundantCount is floor(R/100 * total)
func RedundantCount(total int, percent float64) int {
	return int(percent * float64(total) / 100)
}

// ExpectedLength is the number of questions a group of k images yields
func ExpectedLength(k int, opts Options) int {
	if k < 2 {
		return 0
	}
	c := k * (k - 1) / 2
	return c + opts.Multiplier*RedundantCount(c, opts.RedundancyPercent)
}

// withRedundancy marks floor(R% of pairs) at random and appends each marked
// pair Multiplier more times, then shuffles the whole list.
func withRedundancy(pairs []Pair, opts Options) []Pair {
	n := RedundantCount(len(pairs), opts.RedundancyPercent)

	order := make([]int, len(pairs))
	for i := range order {
		order[i] = i
	}
	shuffle.ShuffleWith(opts.Rand, order)

	out := make([]Pair, len(pairs), len(pairs)+n*opts.Multiplier)
	copy(out, pairs)
	for _, idx := range order[:n] {
		out[idx].Redundant = true
		for range opts.Multiplier {
			out = append(out, out[idx])
		}
	}

	shuffle.ShuffleWith(opts.Rand, out)
	return out
}

// Generator turns image groups into unsaved comparison questions
type Generator struct {
	resolver ReferenceResolver
	log      logger.Logger
}

// NewGenerator creates a generator resolving references through resolver
func NewGenerator(resolver ReferenceResolver, log logger.Logger) *Generator {
	if log == nil {
		log = GetLogger()
	}
	return &Generator{resolver: resolver, log: log}
}

// Generate builds the comparison questions for one group. A group with fewer
// than two distinct images yields no questions. The reference image is
// resolved once for the group; failure to resolve it aborts with a not-found error.
func (g *Generator) Generate(ctx context.Context, groupID int, group []datastore.Image, opts Options) ([]*datastore.Question, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	members := distinctImages(group)
	if len(members) < 2 {
		return nil, nil
	}

	reference, err := g.resolver.FindOriginalForSegmentationMask(ctx, members[0])
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(err).
				Component("pairing").
				Category(errors.CategoryNotFound).
				Context("group_id", groupID).
				Context("mask", members[0].Filename).
				Build()
		}
		return nil, err
	}

	pairs := withRedundancy(Pairs(members), opts)

	questions := make([]*datastore.Question, 0, len(pairs))
	for _, p := range pairs {
		gid := groupID
		questions = append(questions, &datastore.Question{
			Kind:             datastore.QuestionComparison,
			GroupID:          &gid,
			ReferenceImageID: &reference.ID,
			ReferenceImage:   reference,
			CandidateAID:     &p.A.ID,
			CandidateA:       p.A,
			CandidateBID:     &p.B.ID,
			CandidateB:       p.B,
			Redundant:        p.Redundant,
		})
	}

	g.log.Debug("generated comparison questions",
		logger.Int("group_id", groupID),
		logger.Int("images", len(members)),
		logger.Int("questions", len(questions)),
		logger.String("reference", reference.Filename))
	return questions, nil
}

// distinctImages drops repeated image ids so no pair compares an image with itself
func distinctImages(group []datastore.Image) []*datastore.Image {
	seen := make(map[uint]struct{}, len(group))
	out := make([]*datastore.Image, 0, len(group))
	for i := range group {
		if _, dup := seen[group[i].ID]; dup {
			continue
		}
		seen[group[i].ID] = struct{}{}
		out = append(out, &group[i])
	}
	return out
}

var packageLogger logger.Logger

// GetLogger returns the pairing module logger
func GetLogger() logger.Logger {
	if packageLogger == nil {
		return logger.Global().Module("pairing")
	}
	return packageLogger
}

// SetLogger replaces the pairing module logger
func SetLogger(l logger.Logger) {
	packageLogger = l
}
