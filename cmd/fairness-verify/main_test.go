package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bokk3/gamble-fun-sub001/internal/fairness"
	"github.com/bokk3/gamble-fun-sub001/internal/gameid"
	"github.com/bokk3/gamble-fun-sub001/internal/store"
)

func writeRecord(t *testing.T, record *store.HandRecord) string {
	t.Helper()
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "hand.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestVerifyRecordRejectsMalformedHandID(t *testing.T) {
	path := writeRecord(t, &store.HandRecord{
		SchemaVersion: store.SchemaVersion,
		HandID:        "not-a-hand-id",
	})
	err := verifyRecord(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed hand id")
}

func TestVerifyRecordAcceptsWellFormedRecord(t *testing.T) {
	serverSeed := "0011223344556677"
	path := writeRecord(t, &store.HandRecord{
		SchemaVersion:  store.SchemaVersion,
		HandID:         gameid.Generate(),
		SeedCommitment: fairness.Commitment(serverSeed),
		ServerSeed:     serverSeed,
		ClientSeed:     "aabbcc",
	})
	require.NoError(t, verifyRecord(path))
}
