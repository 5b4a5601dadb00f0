package main

import (
	"net/http"
	"runtime"
	"time"

	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/version"
	"github.com/ferro-labs/media-gateway/providers"
)

// healthSampleKeys bounds the cache keys reported by /health.
const healthSampleKeys = 5

type memoryUsage struct {
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapInUse  uint64 `json:"heapInUse"`
	HeapSys    uint64 `json:"heapSys"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

func readMemoryUsage() memoryUsage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return memoryUsage{
		HeapAlloc:  ms.HeapAlloc,
		HeapInUse:  ms.HeapInuse,
		HeapSys:    ms.HeapSys,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

func (g *gateway) health(w http.ResponseWriter, _ *http.Request) {
	keys := g.registry.KeyStatus()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(g.started).Seconds(),
		"memory":    readMemoryUsage(),
		"cache":     g.responses.Cache().Stats(healthSampleKeys),
		"rateLimit": g.limiter.Stats(),
		"config": map[string]interface{}{
			"freesoundKeySet": keys[providers.NameFreesound],
			"pexelsKeySet":    keys[providers.NamePexels],
			"port":            g.cfg.Port,
		},
		"version": version.Short(),
	})
}

func (g *gateway) cacheStatus(w http.ResponseWriter, _ *http.Request) {
	stats := g.responses.Cache().Stats(-1)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"size":        stats.Size,
		"keys":        stats.Keys,
		"memoryUsage": readMemoryUsage(),
	})
}

func (g *gateway) cacheClear(w http.ResponseWriter, r *http.Request) {
	n := g.responses.Cache().Clear()
	logging.FromContext(r.Context()).Info("cache cleared", "entries", n)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Cache cleared",
		"cleared": n,
	})
}
