package pairing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/surveygen/internal/datastore"
	"github.com/tphakala/surveygen/internal/errors"
	"github.com/tphakala/surveygen/internal/logger"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) FindOriginalForSegmentationMask(ctx context.Context, mask *datastore.Image) (*datastore.Image, error) {
	args := m.Called(ctx, mask)
	if img, ok := args.Get(0).(*datastore.Image); ok {
		return img, args.Error(1)
	}
	return nil, args.Error(1)
}

func maskGroup(k int) []datastore.Image {
	group := make([]datastore.Image, k)
	for i := range group {
		group[i] = datastore.Image{
			ID:       uint(i + 10),
			Filename: fmt.Sprintf("21_training_net%d_drive.png", i),
			Type:     datastore.ImageTypeSegmentation,
		}
	}
	return group
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 1))
}

func pairKey(q *datastore.Question) [2]uint {
	a, b := *q.CandidateAID, *q.CandidateBID
	if a > b {
		a, b = b, a
	}
	return [2]uint{a, b}
}

func TestPairsEnumeratesAllCombinations(t *testing.T) {
	t.Parallel()

	for k := range 8 {
		group := maskGroup(k)
		images := make([]*datastore.Image, k)
		for i := range group {
			images[i] = &group[i]
		}

		pairs := Pairs(images)
		if k < 2 {
			assert.Empty(t, pairs)
			continue
		}
		assert.Len(t, pairs, k*(k-1)/2)

		unique := map[[2]uint]bool{}
		for _, p := range pairs {
			assert.NotEqual(t, p.A.ID, p.B.ID)
			assert.Less(t, p.A.ID, p.B.ID)
			unique[[2]uint{p.A.ID, p.B.ID}] = true
		}
		assert.Len(t, unique, len(pairs))
	}
}

func TestRedundantCountFloors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, RedundantCount(6, 50))
	assert.Equal(t, 0, RedundantCount(6, 10))
	assert.Equal(t, 1, RedundantCount(10, 10))
	assert.Equal(t, 2, RedundantCount(15, 15))
	assert.Equal(t, 6, RedundantCount(6, 100))
	assert.Equal(t, 0, RedundantCount(6, 0))
}

// Four masks, half the pairs repeated once: 6 base pairs plus 3 copies.
func TestGenerateFourImageGroup(t *testing.T) {
	t.Parallel()

	reference := &datastore.Image{ID: 1, Filename: "21_training.tif", Type: datastore.ImageTypeOriginal}
	resolver := &mockResolver{}
	resolver.On("FindOriginalForSegmentationMask", mock.Anything, mock.Anything).Return(reference, nil).Once()

	gen := NewGenerator(resolver, logger.NewDiscardLogger())
	opts := Options{RedundancyPercent: 50, Multiplier: 1, Rand: seeded()}

	questions, err := gen.Generate(context.Background(), 3, maskGroup(4), opts)
	require.NoError(t, err)
	require.Len(t, questions, 9)
	assert.Equal(t, 9, ExpectedLength(4, opts))

	occurrences := map[[2]uint]int{}
	redundant := 0
	for _, q := range questions {
		assert.Equal(t, datastore.QuestionComparison, q.Kind)
		assert.Equal(t, reference.ID, *q.ReferenceImageID)
		assert.Same(t, reference, q.ReferenceImage)
		assert.Equal(t, 3, *q.GroupID)
		assert.NotEqual(t, *q.CandidateAID, *q.CandidateBID)
		occurrences[pairKey(q)]++
		if q.Redundant {
			redundant++
		}
	}

	assert.Len(t, occurrences, 6)
	twice := 0
	for _, n := range occurrences {
		if n == 2 {
			twice++
		}
	}
	assert.Equal(t, 3, twice)
	assert.Equal(t, 6, redundant, "every occurrence of a repeated pair is flagged")

	// reference resolved once per group
	resolver.AssertNumberOfCalls(t, "FindOriginalForSegmentationMask", 1)
}

func TestGenerateLengthFormula(t *testing.T) {
	t.Parallel()

	reference := &datastore.Image{ID: 1}
	for _, tc := range []struct {
		k int
		r float64
		m int
	}{
		{2, 0, 1}, {3, 100, 2}, {5, 10, 5}, {6, 33, 3}, {8, 75, 1},
	} {
		resolver := &mockResolver{}
		resolver.On("FindOriginalForSegmentationMask", mock.Anything, mock.Anything).Return(reference, nil)
		opts := Options{RedundancyPercent: tc.r, Multiplier: tc.m, Rand: seeded()}

		questions, err := NewGenerator(resolver, logger.NewDiscardLogger()).Generate(context.Background(), 1, maskGroup(tc.k), opts)
		require.NoError(t, err)

		c := tc.k * (tc.k - 1) / 2
		assert.Len(t, questions, c+tc.m*RedundantCount(c, tc.r), "k=%d r=%v m=%d", tc.k, tc.r, tc.m)
	}
}

func TestGenerateSmallGroupIsEmpty(t *testing.T) {
	t.Parallel()

	resolver := &mockResolver{}
	gen := NewGenerator(resolver, logger.NewDiscardLogger())
	opts := Options{RedundancyPercent: 10, Multiplier: 5}

	for _, group := range [][]datastore.Image{nil, maskGroup(1)} {
		questions, err := gen.Generate(context.Background(), 1, group, opts)
		require.NoError(t, err)
		assert.Empty(t, questions)
	}

	// the same image twice is still one distinct image
	dup := maskGroup(1)
	questions, err := gen.Generate(context.Background(), 1, append(dup, dup[0]), opts)
	require.NoError(t, err)
	assert.Empty(t, questions)

	resolver.AssertNotCalled(t, "FindOriginalForSegmentationMask", mock.Anything, mock.Anything)
}

func TestGenerateFailsWithoutReference(t *testing.T) {
	t.Parallel()

	resolver := &mockResolver{}
	resolver.On("FindOriginalForSegmentationMask", mock.Anything, mock.Anything).
		Return(nil, errors.NotFoundError("datastore", "original image", "21_training"))

	questions, err := NewGenerator(resolver, logger.NewDiscardLogger()).
		Generate(context.Background(), 4, maskGroup(3), Options{RedundancyPercent: 10, Multiplier: 5})
	require.Error(t, err)
	assert.Nil(t, questions)
	assert.True(t, errors.IsNotFound(err))
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Options{RedundancyPercent: 0, Multiplier: 1}.Validate())
	assert.True(t, errors.IsConfiguration(Options{RedundancyPercent: 101, Multiplier: 1}.Validate()))
	assert.True(t, errors.IsConfiguration(Options{RedundancyPercent: 10, Multiplier: 0}.Validate()))
}
