package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mediachain/core/types"
)

func record(height, seq uint64, kind, contentID string) types.EventRecord {
	attrs := map[string]string{"height": "x"}
	if contentID != "" {
		attrs["contentId"] = contentID
	}
	return types.EventRecord{Height: height, Sequence: seq, Event: &types.Event{Type: kind, Attributes: attrs}}
}

func TestPublishAndList(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	batch := []types.EventRecord{
		record(1, 1, "token.transfer", ""),
		record(2, 2, "promotion.registered", "http://abc"),
		record(5, 3, "promotion.interaction", "http://abc"),
		record(6, 4, "promotion.registered", "http://other"),
	}
	require.NoError(t, idx.Publish(ctx, batch))

	all, err := idx.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, uint64(1), all[0].Sequence)

	byContent, err := idx.List(ctx, Filter{ContentID: "http://abc"})
	require.NoError(t, err)
	require.Len(t, byContent, 2)

	byType, err := idx.List(ctx, Filter{Type: "promotion.registered", FromHeight: 3})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Equal(t, "http://other", byType[0].Event.Attributes["contentId"])
}

func TestPublishIsIdempotent(t *testing.T) {
	idx, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	rec := record(3, 9, "promotion.ended", "http://abc")
	require.NoError(t, idx.Publish(ctx, []types.EventRecord{rec}))
	require.NoError(t, idx.Publish(ctx, []types.EventRecord{rec}))

	rows, err := idx.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestFingerprintIgnoresAttributeOrder(t *testing.T) {
	a := types.EventRecord{Height: 1, Sequence: 1, Event: &types.Event{Type: "t", Attributes: map[string]string{"a": "1", "b": "2"}}}
	b := types.EventRecord{Height: 1, Sequence: 1, Event: &types.Event{Type: "t", Attributes: map[string]string{"b": "2", "a": "1"}}}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
	b.Sequence = 2
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
