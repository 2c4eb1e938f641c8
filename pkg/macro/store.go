/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package macro

import (
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	"go.etcd.io/bbolt"

	"github.com/openplayout/go-playout/pkg/log"
)

const (
	BucketName = "macros"
)

// Store persists macro definitions by id.
type Store struct {
	db *bbolt.DB
}

func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

// Put stores or replaces a macro definition.
func (s *Store) Put(m *Macro) error {
	log.Debug("Storing macro: %s", m.ID)
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).Put([]byte(m.ID), data)
	})
}

// Get looks a macro up by id. Returns ErrMacroNotFound for unknown ids.
func (s *Store) Get(id string) (*Macro, error) {
	var m *Macro
	if err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(BucketName)).Get([]byte(id))
		if data == nil {
			return ErrMacroNotFound{ID: id}
		}
		m = &Macro{}
		return json.Unmarshal(data, m)
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns all stored macros in key order.
func (s *Store) List() ([]*Macro, error) {
	var macros []*Macro
	if err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).ForEach(func(k, v []byte) error {
			m := &Macro{}
			if err := json.Unmarshal(v, m); err != nil {
				return err
			}
			macros = append(macros, m)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return macros, nil
}

// Delete removes a macro. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketName)).Delete([]byte(id))
	})
}

type seedFile struct {
	Macro []*Macro `toml:"macro"`
}

// SeedFromTOML imports macro definitions from a [[macro]] table file,
// replacing stored definitions with the same id. A missing file is a no-op.
func (s *Store) SeedFromTOML(path string) (int, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil
	}
	var seed seedFile
	if _, err := toml.DecodeFile(path, &seed); err != nil {
		return 0, err
	}
	count := 0
	for _, m := range seed.Macro {
		if m.ID == "" {
			log.Warning("Skipping macro without id in %s", path)
			continue
		}
		if err := s.Put(m); err != nil {
			return count, err
		}
		count++
	}
	log.Info("Seeded %d macro(s) from %s", count, path)
	return count, nil
}
