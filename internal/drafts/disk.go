// Package drafts holds the durable stores for in-progress schedule drafts.
package drafts

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const diskCollection = "pending"

// Disk keeps one JSON file per client under basePath/pending.
type Disk struct {
	d *diskv.Diskv
}

func NewDisk(basePath string) *Disk {
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      256 * 1024,
	})}
}

func (s *Disk) Save(_ context.Context, draft model.Draft) error {
	b, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.d.Write(toKey(draft.ClientID), b)
}

func (s *Disk) Load(_ context.Context, clientID string) (*model.Draft, error) {
	key := toKey(clientID)
	if !s.d.Has(key) {
		return nil, nil
	}
	b, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var d model.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", clientID, err)
	}
	return &d, nil
}

func (s *Disk) Clear(_ context.Context, clientID string) error {
	err := s.d.Erase(toKey(clientID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clients lists every client that has a draft on disk.
func (s *Disk) Clients(ctx context.Context) []string {
	var out []string
	for key := range s.d.KeysPrefix(diskCollection+"-", ctx.Done()) {
		if id, ok := fromKey(key); ok {
			out = append(out, id)
		}
	}
	return out
}

func toKey(clientID string) string {
	return diskCollection + "-" + hex.EncodeToString([]byte(clientID))
}

func fromKey(key string) (string, bool) {
	enc, ok := strings.CutPrefix(key, diskCollection+"-")
	if !ok {
		return "", false
	}
	b, err := hex.DecodeString(enc)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + ".json",
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), strings.TrimSuffix(pathKey.FileName, ".json"))
}
