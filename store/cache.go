package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// latestExecutionCacheSize bounds memory for the "latest execution per job"
// cache; it only needs to cover jobs with in-flight or recently-touched
// executions, not the whole store.
const latestExecutionCacheSize = 4096

// latestExecutionCache keeps getLatestExecution cheap: it is called on
// every restartExecution and frequently by transport polling, and the
// underlying query (max(_created) per job_id) is otherwise a full table
// scan on every call.
type latestExecutionCache struct {
	cache *lru.Cache[string, string]
}

func newLatestExecutionCache() *latestExecutionCache {
	c, err := lru.New[string, string](latestExecutionCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// latestExecutionCacheSize never is.
		panic(err)
	}
	return &latestExecutionCache{cache: c}
}

func (l *latestExecutionCache) get(jobId string) (string, bool) {
	return l.cache.Get(jobId)
}

func (l *latestExecutionCache) put(jobId, exId string) {
	l.cache.Add(jobId, exId)
}

func (l *latestExecutionCache) invalidate(jobId string) {
	l.cache.Remove(jobId)
}
