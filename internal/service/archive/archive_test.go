package archive

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cm-admin/internal/metrics"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Target
		wantErr bool
	}{
		{
			name:  "s3 with prefix",
			input: "s3://cm-raw/uploads/prod",
			want:  Target{Scheme: "s3", Bucket: "cm-raw", Prefix: "uploads/prod"},
		},
		{
			name:  "gcs bucket only",
			input: "gs://cm-raw",
			want:  Target{Scheme: "gs", Bucket: "cm-raw"},
		},
		{
			name:  "azure",
			input: "azblob://cmstore/raw/uploads",
			want:  Target{Scheme: "azblob", Account: "cmstore", Bucket: "raw", Prefix: "uploads"},
		},
		{name: "azure without container", input: "azblob://cmstore", wantErr: true},
		{name: "unknown scheme", input: "ftp://host/dir", wantErr: true},
		{name: "no scheme", input: "bucket/key", wantErr: true},
		{name: "empty bucket", input: "s3:///prefix", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTarget_Key(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tele2_coverage/3-Jan.csv", Target{}.Key("tele2_coverage/3-Jan.csv"))
	assert.Equal(t, "raw/tele2_coverage/3-Jan.csv", Target{Prefix: "raw"}.Key("tele2_coverage/3-Jan.csv"))
}

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), Options{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewS3Store_RequiresKeys(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store("cm-raw", Options{S3Endpoint: "minio:9000"})
	require.Error(t, err)

	s, err := NewS3Store("cm-raw", Options{S3Endpoint: "minio:9000", S3AccessKeyID: "k", S3SecretAccessKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "cm-raw", s.bucket)
}

type memStore struct {
	mu   sync.Mutex
	objs map[string][]byte
	err  error
}

func (m *memStore) Put(_ context.Context, key string, body []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[key] = body
	return nil
}

func TestArchiver_Archive(t *testing.T) {
	store := &memStore{objs: map[string][]byte{}}
	a := NewArchiver(store, Target{Scheme: "s3", Bucket: "b", Prefix: "raw"}, 2, slog.New(slog.DiscardHandler))

	require.NoError(t, a.Archive(context.Background(), "tele2_coverage/1-Jan.csv", []byte("a,b\n")))
	require.NoError(t, a.Archive(context.Background(), "tele2_coverage/2-Feb.csv", []byte("c,d\n")))
	a.Close()

	assert.Equal(t, []byte("a,b\n"), store.objs["raw/tele2_coverage/1-Jan.csv"])
	assert.Len(t, store.objs, 2)

	assert.Error(t, a.Archive(context.Background(), "late.csv", nil), "closed archiver rejects work")
}

func TestArchiver_FailureIsCounted(t *testing.T) {
	before := testutil.ToFloat64(metrics.ArchiveFailuresTotal)
	a := NewArchiver(&memStore{err: errors.New("access denied")}, Target{Scheme: "gs", Bucket: "b"}, 1, slog.New(slog.DiscardHandler))

	require.NoError(t, a.Archive(context.Background(), "x.csv", []byte("x")))
	a.Close()

	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.ArchiveFailuresTotal), 0)
}
