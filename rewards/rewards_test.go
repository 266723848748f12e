package rewards

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const wallet = "0x36e1330847b5a8362ee11921637E92bA83249742"

func TestGetUnknown(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	r, err := s.Get(context.Background(), wallet)
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestTrackKeepsFirstVisit(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	t0 := time.UnixMilli(1_700_000_000_000)
	_, err = Track(ctx, s, wallet, big.NewInt(100), t0)
	require.NoError(t, err)

	t1 := t0.Add(time.Hour)
	r, err := Track(ctx, s, wallet, big.NewInt(250), t1)
	require.NoError(t, err)

	require.Equal(t, t1.UnixMilli(), r.LastVisitTime)
	require.Equal(t, "250", r.TotalRewards)
	require.Equal(t, t0.UnixMilli(), r.FirstVisitTime)
	require.Equal(t, "100", r.FirstTotalRewards)

	got, err := s.Get(ctx, wallet)
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestTrackUpgradesOldRecord(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, Record{LastVisitTime: 5, TotalRewards: "7", WalletAddress: wallet}))

	r, err := Track(ctx, s, wallet, big.NewInt(9), time.UnixMilli(10))
	require.NoError(t, err)
	require.EqualValues(t, 5, r.FirstVisitTime)
	require.Equal(t, "7", r.FirstTotalRewards)
}

func TestTrackRejectsNegative(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = Track(context.Background(), s, wallet, big.NewInt(-1), time.Now())
	require.Error(t, err)
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, Record{LastVisitTime: 1, TotalRewards: "1", WalletAddress: wallet}))
	require.NoError(t, s.Put(ctx, Record{LastVisitTime: 2, TotalRewards: "2", WalletAddress: wallet}))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	r, err := s2.Get(ctx, wallet)
	require.NoError(t, err)
	require.Equal(t, "2", r.TotalRewards)
}

func TestFileStoreCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FILE_NAME), []byte("{"), 0644))

	_, err := NewFileStore(dir)
	require.Error(t, err)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("memcached", t.TempDir(), "")
	require.Error(t, err)

	s, err := Open("", t.TempDir(), "")
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)
}

func TestRedisBadURL(t *testing.T) {
	_, err := Open("redis", "", "not a url")
	require.Error(t, err)
}
