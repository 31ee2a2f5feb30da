package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bokk3/gamble-fun-sub001/internal/fileutil"
	"github.com/charmbracelet/log"
)

// FileStore persists hand records as one JSON document per hand under
// <dir>/<tableID>/<handID>.json. Writes are atomic so auditors never observe
// a partial record.
type FileStore struct {
	dir    string
	logger *log.Logger
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create hand store dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger.WithPrefix("handstore")}, nil
}

// AppendHand writes the record. A filesystem failure maps to ErrUnavailable
// so callers apply their refuse-new-hands policy.
func (fs *FileStore) AppendHand(record *HandRecord) error {
	tableDir := filepath.Join(fs.dir, record.TableID)
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		fs.logger.Error("hand record dir failed", "table", record.TableID, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode hand record: %w", err)
	}

	path := filepath.Join(tableDir, record.HandID+".json")
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		fs.logger.Error("hand record write failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fs.logger.Debug("hand record written", "table", record.TableID, "hand", record.HandID)
	return nil
}

// ReadHand loads a persisted hand record, verifying the schema version.
func (fs *FileStore) ReadHand(tableID, handID string) (*HandRecord, error) {
	path := filepath.Join(fs.dir, tableID, handID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hand record: %w", err)
	}

	var record HandRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode hand record: %w", err)
	}
	if record.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported hand record schema %d", record.SchemaVersion)
	}
	return &record, nil
}
