package repositories

import (
	"chat-relay/domain"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const presencePrefix = "user:"

type IPresenceRepository interface {
	IsTaken(name string) (bool, error)
	SetOnline(name string, online bool) error
	Rename(oldName, newName string) (bool, error)
	ResetOnline() (int, error)
	List() ([]Presence, error)
}

// PresenceRepository keeps the last known presence of every username in BadgerDB.
// Keys are "user:{folded name}", values a protobuf Struct carrying the display name.
type PresenceRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewPresenceRepository(db *badger.DB, log *slog.Logger) *PresenceRepository {
	return &PresenceRepository{db: db, log: log, now: time.Now}
}

// Presence is the repository-level view of a stored username.
type Presence struct {
	Username  string
	Online    bool
	UpdatedAt time.Time
}

func presenceKey(name string) []byte {
	return []byte(presencePrefix + domain.NameKey(name))
}

// IsTaken reports whether name is currently recorded online.
func (p *PresenceRepository) IsTaken(name string) (bool, error) {
	var presence Presence
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		presence, err = readPresence(txn, presenceKey(name))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return presence.Online, nil
}

// SetOnline upserts name with the given online flag.
func (p *PresenceRepository) SetOnline(name string, online bool) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return p.writePresence(txn, Presence{Username: name, Online: online})
	})
}

// Rename moves the online record from oldName to newName.
// It returns false without writing when newName is held online by someone else.
func (p *PresenceRepository) Rename(oldName, newName string) (bool, error) {
	renamed := false
	err := p.db.Update(func(txn *badger.Txn) error {
		oldKey, newKey := presenceKey(oldName), presenceKey(newName)
		if string(oldKey) != string(newKey) {
			current, err := readPresence(txn, newKey)
			switch {
			case err == nil && current.Online:
				return nil
			case err != nil && err != badger.ErrKeyNotFound:
				return err
			}
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
		}
		renamed = true
		return p.writePresence(txn, Presence{Username: newName, Online: true})
	})
	return renamed, err
}

// ResetOnline marks every stored username offline and returns how many were online.
// Called at startup since a previous process may have died without cleaning up.
func (p *PresenceRepository) ResetOnline() (int, error) {
	count := 0
	err := p.db.Update(func(txn *badger.Txn) error {
		online, err := scan(txn)
		if err != nil {
			return err
		}
		for _, presence := range online {
			if !presence.Online {
				continue
			}
			presence.Online = false
			if err := p.writePresence(txn, presence); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// List returns every stored username sorted by display name.
func (p *PresenceRepository) List() ([]Presence, error) {
	var res []Presence
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		res, err = scan(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Username < res[j].Username })
	return res, nil
}

func scan(txn *badger.Txn) ([]Presence, error) {
	var res []Presence
	options := badger.DefaultIteratorOptions
	options.Prefix = []byte(presencePrefix)
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		var presence Presence
		err := it.Item().Value(func(val []byte) error {
			var err error
			presence, err = decodePresence(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		res = append(res, presence)
	}
	return res, nil
}

func readPresence(txn *badger.Txn, key []byte) (Presence, error) {
	item, err := txn.Get(key)
	if err != nil {
		return Presence{}, err
	}
	var presence Presence
	err = item.Value(func(val []byte) error {
		presence, err = decodePresence(val)
		return err
	})
	return presence, err
}

func (p *PresenceRepository) writePresence(txn *badger.Txn, presence Presence) error {
	presence.UpdatedAt = p.now().UTC()
	data, err := encodePresence(presence)
	if err != nil {
		return err
	}
	return txn.Set(presenceKey(presence.Username), data)
}

func encodePresence(presence Presence) ([]byte, error) {
	value, err := structpb.NewStruct(map[string]any{
		"username":  presence.Username,
		"online":    presence.Online,
		"updatedAt": float64(presence.UpdatedAt.UnixMilli()),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}
	return proto.Marshal(value)
}

func decodePresence(data []byte) (Presence, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(data, &value); err != nil {
		return Presence{}, fmt.Errorf("unmarshal failed: %w", err)
	}
	fields := value.GetFields()
	return Presence{
		Username:  fields["username"].GetStringValue(),
		Online:    fields["online"].GetBoolValue(),
		UpdatedAt: time.UnixMilli(int64(fields["updatedAt"].GetNumberValue())).UTC(),
	}, nil
}
