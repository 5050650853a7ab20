package app

import (
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	"github.com/coschain/hivebridge/prototype"
)

const (
	// DefaultProvisionalCacheSize is the freecache arena size in bytes.
	DefaultProvisionalCacheSize = 1024 * 1024

	// DefaultProvisionalTTL bounds how long a placeholder may shadow the chain.
	DefaultProvisionalTTL = 300
)

// ProvisionalVotes holds optimistic vote placeholders keyed by
// author/permlink/voter. Entries expire after ttl seconds.
type ProvisionalVotes struct {
	cache *freecache.Cache
	ttl   int
}

func NewProvisionalVotes(size, ttlSeconds int) *ProvisionalVotes {
	if size <= 0 {
		size = DefaultProvisionalCacheSize
	}
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultProvisionalTTL
	}
	return &ProvisionalVotes{cache: freecache.NewCache(size), ttl: ttlSeconds}
}

func provisionalKey(author, permlink, voter string) []byte {
	return []byte(fmt.Sprintf("%s/%s/%s", author, permlink, voter))
}

func (p *ProvisionalVotes) Put(author, permlink string, rec *prototype.VoteRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.cache.Set(provisionalKey(author, permlink, rec.Voter), data, p.ttl)
}

func (p *ProvisionalVotes) Get(author, permlink, voter string) *prototype.VoteRecord {
	data, err := p.cache.Get(provisionalKey(author, permlink, voter))
	if err != nil {
		return nil
	}
	rec := &prototype.VoteRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil
	}
	rec.Provisional = true
	return rec
}

func (p *ProvisionalVotes) Drop(author, permlink, voter string) {
	p.cache.Del(provisionalKey(author, permlink, voter))
}

func (p *ProvisionalVotes) Count() int64 {
	return p.cache.EntryCount()
}
