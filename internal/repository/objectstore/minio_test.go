package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jvm-assembler/internal/config"
)

// TestKey joins the prefix and name without duplicate slashes.
func TestKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "myapp-linux.zip", Key("", "myapp-linux.zip"))
	require.Equal(t, "releases/2.0/myapp-linux.zip", Key("releases/2.0", "myapp-linux.zip"))
	require.Equal(t, "releases/myapp-linux.zip", Key("/releases/", "myapp-linux.zip"))
}

// TestNew validates publishing settings before building a client.
func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, errNotInitialized)

	_, err = New(&config.Publish{Endpoint: "s3.example.com"})
	require.Error(t, err)

	cfg := &config.Publish{
		Endpoint:  "127.0.0.1:9000",
		Bucket:    "releases",
		Prefix:    "jvm",
		AccessKey: "access",
		SecretKey: "secret",
	}

	store, err := New(cfg)
	require.NoError(t, err)
	require.Equal(t, config.DefaultRegion, cfg.Region)
	require.Equal(t, "jvm/app.zip", store.Key("app.zip"))
}

// TestUploadUninitialized fails instead of panicking on a zero store.
func TestUploadUninitialized(t *testing.T) {
	t.Parallel()

	var store *MinioStore

	_, err := store.Upload(context.Background(), "a.zip", "a.zip", "application/zip")
	require.ErrorIs(t, err, errNotInitialized)
}
