// Package store persists the backend server registry as a JSON document on disk.
package store

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gpupool/gatewayd/internal/domain"
	"github.com/gpupool/gatewayd/internal/errors"
	"github.com/gpupool/gatewayd/internal/files"
	"github.com/gpupool/gatewayd/internal/perms"
)

// DefaultFileName is the state file used when no path is configured.
const DefaultFileName = "backend_servers.json"

// FileStore loads and saves the full set of registered servers as a JSON array.
// The file is rewritten wholesale on every save.
// NewFileStore should be used to create instances of FileStore.
type FileStore struct {
	path   string
	logger hclog.Logger
	schema *gojsonschema.Schema
}

// record is the on-disk representation of a domain.Server.
type record struct {
	ServerID      string     `json:"server_id"`
	IP            string     `json:"ip"`
	Port          int        `json:"port"`
	URL           string     `json:"url"`
	IsHealthy     bool       `json:"is_healthy"`
	FailCount     int        `json:"fail_count"`
	LastCheckTime *time.Time `json:"last_check_time"`
	LastUsedTime  *time.Time `json:"last_used_time"`
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(logger hclog.Logger, path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("state file path cannot be empty")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile state record schema: %w", err)
	}

	return &FileStore{
		path:   path,
		logger: logger.Named("store"),
		schema: schema,
	}, nil
}

// Path returns the location of the state file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads every valid server record from the state file, preserving file order.
// A missing file is not an error and yields no servers.
// Records that fail schema validation are skipped and logged.
func (s *FileStore) Load() ([]domain.Server, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if stdErrors.Is(err, os.ErrNotExist) {
			s.logger.Debug("State file not found, starting empty", "path", s.path)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read state file (%s): %w", errors.ErrPersistenceFailed, s.path, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode state file (%s): %w", errors.ErrPersistenceFailed, s.path, err)
	}

	servers := make([]domain.Server, 0, len(raw))
	for i, item := range raw {
		result, err := s.schema.Validate(gojsonschema.NewBytesLoader(item))
		if err != nil {
			s.logger.Warn("Skipping unreadable server record", "index", i, "error", err)
			continue
		}
		if !result.Valid() {
			problems := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				problems = append(problems, e.String())
			}
			s.logger.Warn("Skipping invalid server record", "index", i, "problems", problems)
			continue
		}

		var r record
		if err := json.Unmarshal(item, &r); err != nil {
			s.logger.Warn("Skipping undecodable server record", "index", i, "error", err)
			continue
		}
		servers = append(servers, r.toDomain())
	}

	s.logger.Info("Loaded server registry", "path", s.path, "servers", len(servers))

	return servers, nil
}

// Save atomically replaces the state file with the given servers.
func (s *FileStore) Save(servers []domain.Server) error {
	records := make([]record, 0, len(servers))
	for _, srv := range servers {
		records = append(records, fromDomain(srv))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode servers: %w", errors.ErrPersistenceFailed, err)
	}

	if err := files.WriteFileAtomic(s.path, data, perms.SecureFile); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrPersistenceFailed, err)
	}

	s.logger.Debug("Saved server registry", "path", s.path, "servers", len(records))

	return nil
}

func fromDomain(s domain.Server) record {
	return record{
		ServerID:      s.ID,
		IP:            s.Host,
		Port:          s.Port,
		URL:           s.BaseURL(),
		IsHealthy:     s.Healthy,
		FailCount:     s.ConsecutiveFailures,
		LastCheckTime: s.LastCheckedAt,
		LastUsedTime:  s.LastSelectedAt,
	}
}

func (r record) toDomain() domain.Server {
	return domain.Server{
		ID:                  r.ServerID,
		Host:                r.IP,
		Port:                r.Port,
		Healthy:             r.IsHealthy,
		ConsecutiveFailures: r.FailCount,
		LastCheckedAt:       r.LastCheckTime,
		LastSelectedAt:      r.LastUsedTime,
	}
}
