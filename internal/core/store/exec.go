package store

import (
	"sort"

	"github.com/yndnr/respkv-go/internal/core/command"
	"github.com/yndnr/respkv-go/pkg/resp"
)

// execute applies cmd to the owned state. Runs on the actor goroutine only.
func (s *Store) execute(cmd command.Command) resp.Value {
	switch c := cmd.(type) {
	case command.Ping:
		return resp.PONG
	case command.Echo:
		return resp.BulkString(c.Message)
	case command.Set:
		return s.set(c)
	case command.Get:
		return s.get(c.Key)
	case command.ConfigGet:
		val, ok := s.config[c.Key]
		if !ok {
			return resp.Null{}
		}
		return resp.Array{resp.Bulk(c.Key), resp.Bulk(val)}
	case command.Keys:
		return s.listKeys()
	case command.NotImplemented:
		return resp.Errorf("ERR unknown command '" + c.Command + "'")
	default:
		return resp.Errorf("ERR unsupported command '" + cmd.Name() + "'")
	}
}

func (s *Store) set(c command.Set) resp.Value {
	if ttl, ok := c.TTL(); ok {
		s.expires[c.Key] = s.clock.Now().Add(ttl)
	} else {
		delete(s.expires, c.Key)
	}
	s.data[c.Key] = String(c.Value)
	s.keysChanged()
	return resp.OK
}

func (s *Store) get(key string) resp.Value {
	v, ok := s.lookup(key)
	if !ok {
		return resp.Null{}
	}
	return resp.BulkString(v.(String))
}

func (s *Store) listKeys() resp.Value {
	now := s.clock.Now()
	evicted := 0
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if deadline, ok := s.expires[key]; ok && !now.Before(deadline) {
			s.evict(key)
			evicted++
			continue
		}
		keys = append(keys, key)
	}
	if evicted > 0 {
		s.keysExpired(evicted)
	}

	sort.Strings(keys)
	out := make(resp.Array, 0, len(keys))
	for _, k := range keys {
		out = append(out, resp.Bulk(k))
	}
	return out
}

// lookup returns the live value of key, evicting it if its deadline passed.
func (s *Store) lookup(key string) (Value, bool) {
	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if deadline, ok := s.expires[key]; ok && !s.clock.Now().Before(deadline) {
		s.evict(key)
		s.keysExpired(1)
		return nil, false
	}
	return v, true
}

// evict removes key from the keyspace and the expiry table together.
func (s *Store) evict(key string) {
	delete(s.data, key)
	delete(s.expires, key)
}

func (s *Store) keysChanged() {
	s.keys.Store(int64(len(s.data)))
	if s.observer != nil {
		s.observer.KeysChanged(len(s.data))
	}
}

func (s *Store) keysExpired(n int) {
	s.expired.Add(uint64(n))
	s.keysChanged()
	if s.observer != nil {
		s.observer.KeysExpired(n)
	}
	s.logger.Debug("expired keys evicted", "count", n)
}
