package kvserver

// Request and response bodies for the /keys API. Every response goes
// out as HTTP 200; failures travel in the body's error field.

type setRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	TTL   *int64      `json:"ttl"`
}

type deleteKeysRequest struct {
	Prefix string `json:"prefix"`
}

type getResponse struct {
	Value interface{} `json:"value"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type keysResponse struct {
	Keys []string `json:"keys"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type counterRequest struct {
	Value   int64  `json:"value"`
	Default *int64 `json:"default"`
}

type counterResponse struct {
	Value int64 `json:"value"`
}

type ttlResponse struct {
	TTL int64 `json:"ttl"`
}

type setTTLRequest struct {
	TTL int64 `json:"ttl"`
}

type infoResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go"`
	BuildDate string `json:"build_date"`
	Backend   string `json:"backend"`
}
