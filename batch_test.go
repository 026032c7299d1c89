package geomodelgrids

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// BatchQuery opens its own models by URI through OpenModel, which requires
// a real container, so this test exercises only a path that needs no live
// TileDB container: an empty model list, which Initialize rejects because
// no model provides the requested value.
func TestBatchQueryRejectsNoModels(t *testing.T) {
	_, err := BatchQuery(context.Background(), nil, []string{"one"}, "EPSG:3857", SquashNone, 0, []Point{{X: 0, Y: 0, Z: 0}}, 1)
	require.Error(t, err)
}
