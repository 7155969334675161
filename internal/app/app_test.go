package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/media"
)

func TestForm_PreviewServerRequiresRunKey(t *testing.T) {
	a, _, _, _ := newTestApp(t, "tok", &scriptedDriver{})
	a.Config.PreviewAddr = "127.0.0.1:0"
	ctx := context.Background()

	photo := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpg"), 0o600))

	fc, err := a.Form(ctx, listing.TypeCar, "")
	require.NoError(t, err)
	defer fc.Close()
	require.NoError(t, fc.SelectFiles(ctx, media.SlotPhotos, []string{photo}))

	previews := fc.Previews(media.SlotPhotos)
	require.Len(t, previews, 1)
	keyed := previews[0]
	bare, _, found := strings.Cut(keyed, "?")
	require.True(t, found, "issued url carries the run key: %s", keyed)

	resp, err := http.Get(keyed)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(bare)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
